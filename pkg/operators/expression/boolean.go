package expression

import (
	"github.com/agebrock/agebrock-mimo/pkg/core"
)

var booleanOperators = map[string]core.ExpressionFunc{
	"$and": and,
	"$or":  or,
	"$not": not,
}

func and(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if !truthy(v, ctx) {
			return false, nil
		}
	}
	return true, nil
}

func or(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if truthy(v, ctx) {
			return true, nil
		}
	}
	return false, nil
}

func not(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$not", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	return !truthy(vals[0], ctx), nil
}
