package expression

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var setOperators = map[string]core.ExpressionFunc{
	"$allElementsTrue": elementsTrue("$allElementsTrue", true),
	"$anyElementTrue":  elementsTrue("$anyElementTrue", false),
	"$setDifference":   setDifference,
	"$setEquals":       setEquals,
	"$setIntersection": setIntersection,
	"$setIsSubset":     setIsSubset,
	"$setUnion":        setUnion,
}

// sets evaluates the arguments of op, each of which must be an array. ok
// is false when an argument is null or missing.
func sets(op string, obj, expr interface{}, ctx *core.Context) (out [][]interface{}, ok bool, err error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, false, err
	}
	out = make([][]interface{}, len(vals))
	for i, v := range vals {
		if document.IsNil(v) {
			return nil, false, nil
		}
		if out[i], err = toArray(op, v); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

func elementsTrue(op string, all bool) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsN(op, 1, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		arr, err := toArray(op, vals[0])
		if err != nil {
			return nil, err
		}
		for _, v := range arr {
			if truthy(v, ctx) != all {
				return !all, nil
			}
		}
		return all, nil
	}
}

func setDifference(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	in, ok, err := sets("$setDifference", obj, expr, ctx)
	if err != nil || !ok {
		return nil, err
	}
	if len(in) != 2 {
		return nil, fmt.Errorf("%w: $setDifference takes exactly 2 arguments", core.ErrInvalidArgument)
	}
	out := make([]interface{}, 0)
	for _, v := range in[0] {
		if !document.Contains(in[1], v) {
			out = append(out, v)
		}
	}
	return document.Unique(out, ctx.Options().HashFunction)
}

func setEquals(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	in, ok, err := sets("$setEquals", obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if !ok || len(in) < 2 {
		return nil, fmt.Errorf("%w: $setEquals needs at least 2 arrays", core.ErrInvalidArgument)
	}
	hash := ctx.Options().HashFunction
	first, err := document.Unique(in[0], hash)
	if err != nil {
		return nil, err
	}
	for _, other := range in[1:] {
		u, err := document.Unique(other, hash)
		if err != nil {
			return nil, err
		}
		if len(u) != len(first) {
			return false, nil
		}
		for _, v := range u {
			if !document.Contains(first, v) {
				return false, nil
			}
		}
	}
	return true, nil
}

func setIntersection(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	in, ok, err := sets("$setIntersection", obj, expr, ctx)
	if err != nil || !ok {
		return nil, err
	}
	return document.Intersection(in, ctx.Options().HashFunction)
}

func setIsSubset(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	in, ok, err := sets("$setIsSubset", obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if !ok || len(in) != 2 {
		return nil, fmt.Errorf("%w: $setIsSubset takes exactly 2 arrays", core.ErrInvalidArgument)
	}
	for _, v := range in[0] {
		if !document.Contains(in[1], v) {
			return false, nil
		}
	}
	return true, nil
}

func setUnion(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	in, ok, err := sets("$setUnion", obj, expr, ctx)
	if err != nil || !ok {
		return nil, err
	}
	return document.Union(in, ctx.Options().HashFunction)
}
