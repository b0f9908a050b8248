package expression

import (
	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var comparisonOperators = map[string]core.ExpressionFunc{
	"$cmp": compareWith("$cmp", func(c int) interface{} { return c }),
	"$eq":  equality("$eq", true),
	"$ne":  equality("$ne", false),
	"$gt":  compareWith("$gt", func(c int) interface{} { return c > 0 }),
	"$gte": compareWith("$gte", func(c int) interface{} { return c >= 0 }),
	"$lt":  compareWith("$lt", func(c int) interface{} { return c < 0 }),
	"$lte": compareWith("$lte", func(c int) interface{} { return c <= 0 }),
}

func compareWith(op string, fn func(int) interface{}) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsN(op, 2, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		return fn(document.Compare(vals[0], vals[1])), nil
	}
}

func equality(op string, want bool) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsN(op, 2, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		return document.Equal(vals[0], vals[1]) == want, nil
	}
}
