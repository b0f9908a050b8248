// Package projection implements the operators allowed as field values
// inside a $project document.
package projection

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators/expression"
	"github.com/agebrock/agebrock-mimo/pkg/path"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// Operators returns the built-in projection operators by name
func Operators() map[string]core.ProjectionFunc {
	return map[string]core.ProjectionFunc{
		"$elemMatch": ElemMatch,
		"$slice":     Slice,
	}
}

// Register adds the built-in projection operators to r
func Register(r *core.Registry) error {
	for name, fn := range Operators() {
		if err := r.Register(core.ClassProjection, name, fn); err != nil {
			return err
		}
	}
	return nil
}

// ElemMatch keeps only the first element of the array at selector that
// matches expr. The field is left out when nothing matches.
func ElemMatch(obj, expr interface{}, selector string, ctx *core.Context) (interface{}, error) {
	arr, ok := path.Resolve(obj, selector).([]interface{})
	if !ok {
		return document.Undefined, nil
	}
	criteria, ok := expr.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $elemMatch projection takes a query document", core.ErrInvalidArgument)
	}
	q, err := query.Compile(criteria, ctx)
	if err != nil {
		return nil, err
	}
	for _, elem := range arr {
		matched, err := q.Test(elem)
		if err != nil {
			return nil, err
		}
		if matched {
			return []interface{}{elem}, nil
		}
	}
	return document.Undefined, nil
}

// Slice limits the array at selector. expr is either a count, negative
// to count from the end, or a [skip, limit] pair.
func Slice(obj, expr interface{}, selector string, ctx *core.Context) (interface{}, error) {
	value := path.Resolve(obj, selector)
	arr, ok := value.([]interface{})
	if !ok {
		return value, nil
	}
	var params []int
	for _, p := range document.EnsureArray(expr) {
		n, ok := document.ToInt64(p)
		if !ok {
			return nil, fmt.Errorf("%w: $slice takes integer arguments", core.ErrInvalidArgument)
		}
		params = append(params, int(n))
	}
	return expression.Slice(arr, params...)
}
