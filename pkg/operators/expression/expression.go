// Package expression implements the aggregation expression operators
// evaluated by core.ComputeValue.
package expression

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// Operators returns the built-in expression operators by name
func Operators() map[string]core.ExpressionFunc {
	ops := map[string]core.ExpressionFunc{}
	for _, group := range []map[string]core.ExpressionFunc{
		arithmeticOperators,
		comparisonOperators,
		booleanOperators,
		conditionalOperators,
		stringOperators,
		arrayOperators,
		setOperators,
		typeOperators,
		dateOperators,
		objectOperators,
		variableOperators,
	} {
		for name, fn := range group {
			ops[name] = fn
		}
	}
	return ops
}

// Register adds the built-in expression operators to r
func Register(r *core.Registry) error {
	for name, fn := range Operators() {
		if err := r.Register(core.ClassExpression, name, fn); err != nil {
			return err
		}
	}
	return nil
}

func compute(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	return core.ComputeValue(obj, expr, "", ctx)
}

// args evaluates expr and returns its elements. A single non-array
// argument is returned as a one element slice.
func args(obj, expr interface{}, ctx *core.Context) ([]interface{}, error) {
	v, err := compute(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	// only an array literal lists several arguments
	if _, ok := expr.([]interface{}); ok {
		return v.([]interface{}), nil
	}
	return []interface{}{v}, nil
}

// argsN evaluates exactly n arguments for op
func argsN(op string, n int, obj, expr interface{}, ctx *core.Context) ([]interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: %s takes exactly %d arguments, got %d", core.ErrInvalidArgument, op, n, len(vals))
	}
	return vals, nil
}

// argsRange evaluates between min and max arguments for op
func argsRange(op string, min, max int, obj, expr interface{}, ctx *core.Context) ([]interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if len(vals) < min || len(vals) > max {
		return nil, fmt.Errorf("%w: %s takes %d to %d arguments, got %d", core.ErrInvalidArgument, op, min, max, len(vals))
	}
	return vals, nil
}

// object evaluates the named fields of an operator's document argument
func object(op string, expr interface{}, required ...string) (map[string]interface{}, error) {
	m, ok := expr.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s needs a document argument, got %T", core.ErrInvalidArgument, op, expr)
	}
	for _, key := range required {
		if _, ok := m[key]; !ok {
			return nil, fmt.Errorf("%w: %s is missing %q", core.ErrInvalidArgument, op, key)
		}
	}
	return m, nil
}

func anyNil(vals ...interface{}) bool {
	for _, v := range vals {
		if document.IsNil(v) {
			return true
		}
	}
	return false
}

func truthy(v interface{}, ctx *core.Context) bool {
	return document.Truthy(v, ctx.Options().UseStrictMode)
}
