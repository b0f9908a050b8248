package expression

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/operators/queryop"
)

var variableOperators = map[string]core.ExpressionFunc{
	"$let":      let,
	"$literal":  literal,
	"$function": function,
}

// let evaluates vars against the current document and then evaluates
// "in" with them in scope
func let(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$let", expr, "vars", "in")
	if err != nil {
		return nil, err
	}
	varsExpr, ok := m["vars"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $let vars must be a document", core.ErrInvalidArgument)
	}
	vars := make(map[string]interface{}, len(varsExpr))
	for name, e := range varsExpr {
		v, err := compute(obj, e, ctx)
		if err != nil {
			return nil, err
		}
		vars[name] = v
	}
	return compute(obj, m["in"], ctx.WithLocal(vars))
}

func literal(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	return expr, nil
}

// function calls a Go function, or runs an expr-lang script with the
// evaluated arguments bound to "args"
func function(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	if !ctx.Options().ScriptEnabled {
		return nil, fmt.Errorf("%w: $function", core.ErrScriptDisabled)
	}
	m, err := object("$function", expr, "body", "args")
	if err != nil {
		return nil, err
	}
	v, err := compute(obj, m["args"], ctx)
	if err != nil {
		return nil, err
	}
	fnArgs, err := toArray("$function", v)
	if err != nil {
		return nil, err
	}

	switch body := m["body"].(type) {
	case func(...interface{}) interface{}:
		return body(fnArgs...), nil
	case func(...interface{}) (interface{}, error):
		return body(fnArgs...)
	case func([]interface{}) (interface{}, error):
		return body(fnArgs)
	case string:
		program, err := queryop.CompileScript(body)
		if err != nil {
			return nil, err
		}
		return queryop.RunScript(program, obj, map[string]interface{}{"args": fnArgs})
	}
	return nil, fmt.Errorf("%w: $function body must be a function or script, got %T", core.ErrInvalidArgument, m["body"])
}
