package stage

import (
	"fmt"
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
)

type accumulation struct {
	field string
	op    string
	expr  interface{}
	fn    core.AccumulatorFunc
}

// Group partitions the documents by the id expression and computes the
// remaining fields with accumulators over each partition. Groups are
// emitted in the order their keys first occur.
func Group(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	spec, ok := expr.(map[string]interface{})
	if !ok {
		return nil, invalid("$group", "requires a document")
	}
	idKey := ctx.Options().IDKey
	idExpr, ok := spec[idKey]
	if !ok {
		return nil, invalid("$group", "requires an '%s' field", idKey)
	}

	accs := make([]accumulation, 0, len(spec)-1)
	for field, v := range spec {
		if field == idKey {
			continue
		}
		if strings.Contains(field, ".") {
			return nil, invalid("$group", "field '%s' must not contain '.'", field)
		}
		m, ok := v.(map[string]interface{})
		if !ok || len(m) != 1 {
			return nil, invalid("$group", "field '%s' must be a single accumulator", field)
		}
		for op, arg := range m {
			fn, ok := ctx.AccumulatorOperator(op)
			if !ok {
				return nil, fmt.Errorf("%w: accumulator %s", core.ErrUnknownOperator, op)
			}
			accs = append(accs, accumulation{field: field, op: op, expr: arg, fn: fn})
		}
	}

	hash := ctx.Options().HashFunction
	return it.Transform(func(coll []interface{}) ([]interface{}, error) {
		groups, err := document.GroupBy(coll, func(obj interface{}) (interface{}, error) {
			key, err := core.ComputeValue(obj, idExpr, "", ctx.WithRoot(obj))
			if document.IsUndefined(key) {
				key = nil
			}
			return key, err
		}, hash)
		if err != nil {
			return nil, err
		}

		out := make([]interface{}, 0, len(groups))
		for _, g := range groups {
			doc := map[string]interface{}{idKey: g.Key}
			gctx := ctx.WithGroupID(g.Key)
			for _, acc := range accs {
				v, err := acc.fn(g.Items, acc.expr, gctx)
				if err != nil {
					return nil, fmt.Errorf("%s %s: %w", acc.field, acc.op, err)
				}
				doc[acc.field] = v
			}
			out = append(out, doc)
		}
		return out, nil
	}), nil
}

// SortByCount groups by expr and sorts the groups by descending size
func SortByCount(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	grouped, err := Group(it, map[string]interface{}{
		ctx.Options().IDKey: expr,
		"count":             map[string]interface{}{"$sum": 1},
	}, ctx)
	if err != nil {
		return nil, err
	}
	return Sort(grouped, document.D{{Key: "count", Value: -1}}, ctx)
}
