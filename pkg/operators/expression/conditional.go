package expression

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var conditionalOperators = map[string]core.ExpressionFunc{
	"$cond":   cond,
	"$ifNull": ifNull,
	"$switch": switchCase,
}

// cond accepts [if, then, else] or {if, then, else}. Only the selected
// branch is evaluated.
func cond(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	var ifExpr, thenExpr, elseExpr interface{}
	switch e := expr.(type) {
	case []interface{}:
		if len(e) != 3 {
			return nil, fmt.Errorf("%w: $cond takes exactly 3 arguments", core.ErrInvalidArgument)
		}
		ifExpr, thenExpr, elseExpr = e[0], e[1], e[2]
	case map[string]interface{}:
		if _, err := object("$cond", e, "if", "then", "else"); err != nil {
			return nil, err
		}
		ifExpr, thenExpr, elseExpr = e["if"], e["then"], e["else"]
	default:
		return nil, fmt.Errorf("%w: $cond needs an array or document", core.ErrInvalidArgument)
	}

	test, err := compute(obj, ifExpr, ctx)
	if err != nil {
		return nil, err
	}
	if truthy(test, ctx) {
		return compute(obj, thenExpr, ctx)
	}
	return compute(obj, elseExpr, ctx)
}

// ifNull returns the first argument that is not null or missing, or the
// last argument
func ifNull(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	exprs, ok := expr.([]interface{})
	if !ok || len(exprs) < 2 {
		return nil, fmt.Errorf("%w: $ifNull takes at least 2 arguments", core.ErrInvalidArgument)
	}
	for _, e := range exprs[:len(exprs)-1] {
		v, err := compute(obj, e, ctx)
		if err != nil {
			return nil, err
		}
		if !document.IsNil(v) {
			return v, nil
		}
	}
	return compute(obj, exprs[len(exprs)-1], ctx)
}

func switchCase(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$switch", expr, "branches")
	if err != nil {
		return nil, err
	}
	branches, ok := m["branches"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $switch branches must be an array", core.ErrInvalidArgument)
	}
	for _, b := range branches {
		branch, err := object("$switch branch", b, "case", "then")
		if err != nil {
			return nil, err
		}
		test, err := compute(obj, branch["case"], ctx)
		if err != nil {
			return nil, err
		}
		if truthy(test, ctx) {
			return compute(obj, branch["then"], ctx)
		}
	}
	def, ok := m["default"]
	if !ok {
		return nil, fmt.Errorf("%w: $switch found no matching branch and has no default", core.ErrInvalidArgument)
	}
	return compute(obj, def, ctx)
}
