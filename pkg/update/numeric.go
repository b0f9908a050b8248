package update

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/path"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// current returns the numeric value under key, treating a missing field
// as zero
func current(c interface{}, k string) (interface{}, error) {
	v := path.Get(c, k)
	if document.IsUndefined(v) {
		return int64(0), nil
	}
	if !document.IsNumber(v) {
		return nil, fmt.Errorf("%w: field '%s' holds %s", ErrNonNumeric, k, document.TypeOf(v))
	}
	return v, nil
}

func arithmetic(name string, apply func(a, b float64) float64) core.UpdateFunc {
	return func(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
		return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
			if !document.IsNumber(val) {
				return false, fmt.Errorf("%w: %s argument is %s", ErrNonNumeric, name, document.TypeOf(val))
			}
			return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
				cur, err := current(c, k)
				if err != nil {
					return false, err
				}
				a, _ := document.ToFloat64(cur)
				b, _ := document.ToFloat64(val)
				ints := !isFloatKind(cur) && !isFloatKind(val)
				path.Set(c, k, document.NormalizeNumber(apply(a, b), ints))
				return true, nil
			}, buildGraph)
		})
	}
}

func isFloatKind(v interface{}) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

// Inc adds to numeric fields. Missing fields start at zero.
var Inc = arithmetic("$inc", func(a, b float64) float64 { return a + b })

// Mul multiplies numeric fields. Missing fields are set to zero.
var Mul = arithmetic("$mul", func(a, b float64) float64 { return a * b })

func bound(sign int) core.UpdateFunc {
	return func(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
		mode := ctx.Options().CloneMode
		return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
			return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
				cur := path.Get(c, k)
				if !document.IsUndefined(cur) && document.Compare(val, cur)*sign <= 0 {
					return false, nil
				}
				v, err := document.Clone(mode, val)
				if err != nil {
					return false, err
				}
				path.Set(c, k, v)
				return true, nil
			}, buildGraph)
		})
	}
}

// Max replaces fields whose value is lower than the given one
var Max = bound(1)

// Min replaces fields whose value is greater than the given one
var Min = bound(-1)

// Bit applies bitwise and, or and xor to integer fields
func Bit(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		ops, ok := document.Ordered(val)
		if !ok || len(ops) == 0 {
			return false, fmt.Errorf("%w: $bit takes {and|or|xor: <int>}", core.ErrInvalidArgument)
		}
		for _, op := range ops {
			if !isIntKind(op.Value) {
				return false, fmt.Errorf("%w: $bit %s argument must be an integer", ErrNonNumeric, op.Key)
			}
		}
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			cur, err := current(c, k)
			if err != nil {
				return false, err
			}
			if !isIntKind(cur) {
				return false, fmt.Errorf("%w: $bit field '%s' must hold an integer", ErrNonNumeric, k)
			}
			n, _ := document.ToInt64(cur)
			orig := n
			for _, op := range ops {
				m, _ := document.ToInt64(op.Value)
				switch op.Key {
				case "and":
					n &= m
				case "or":
					n |= m
				case "xor":
					n ^= m
				default:
					return false, fmt.Errorf("%w: unknown $bit operation '%s'", core.ErrInvalidArgument, op.Key)
				}
			}
			if n == orig && !document.IsUndefined(path.Get(c, k)) {
				return false, nil
			}
			path.Set(c, k, n)
			return true, nil
		}, buildGraph)
	})
}

func isIntKind(v interface{}) bool {
	return document.IsNumber(v) && !isFloatKind(v)
}
