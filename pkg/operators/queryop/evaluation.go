package queryop

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

func compileMod(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	args, ok := value.([]interface{})
	if !ok || len(args) != 2 {
		return nil, fmt.Errorf("%w: $mod needs [divisor, remainder]", core.ErrInvalidArgument)
	}
	divisor, ok1 := document.ToInt64(args[0])
	remainder, ok2 := document.ToInt64(args[1])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: $mod divisor and remainder must be numbers", core.ErrInvalidArgument)
	}
	if divisor == 0 {
		return nil, fmt.Errorf("%w: $mod divisor cannot be 0", core.ErrInvalidArgument)
	}

	return func(lhs interface{}) (bool, error) {
		for _, x := range document.EnsureArray(lhs) {
			n, ok := document.ToInt64(x)
			if ok && document.IsNumber(x) && n%divisor == remainder {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func compileRegex(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	re, ok := value.(*regexp.Regexp)
	if !ok {
		var err error
		if re, err = query.CompileRegex(value, ""); err != nil {
			return nil, err
		}
	}

	match := func(xs []interface{}) bool {
		for _, x := range xs {
			if s, ok := x.(string); ok && re.MatchString(s) {
				return true
			}
		}
		return false
	}
	return func(lhs interface{}) (bool, error) {
		values := document.EnsureArray(lhs)
		return match(values) || match(document.Flatten(values, 1)), nil
	}, nil
}

// Expr matches documents for which an aggregation expression is truthy
func Expr(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	strict := ctx.Options().UseStrictMode
	return func(obj interface{}) (bool, error) {
		v, err := core.ComputeValue(obj, value, "", ctx.WithRoot(obj))
		if err != nil {
			return false, err
		}
		return document.Truthy(v, strict), nil
	}, nil
}

// JSONSchema matches documents accepted by the configured schema validator
func JSONSchema(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	validator := ctx.Options().JSONSchemaValidator
	if validator == nil {
		return nil, fmt.Errorf("%w: configure Options.JSONSchemaValidator to use $jsonSchema", core.ErrMissingValidator)
	}
	validate, err := validator(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	return core.Predicate(validate), nil
}

// Where matches documents with a Go predicate or a script. Scripts are
// expr-lang expressions evaluated with the document fields and "this"
// bound to the document.
func Where(selector string, value interface{}, ctx *core.Context) (core.Predicate, error) {
	if !ctx.Options().ScriptEnabled {
		return nil, fmt.Errorf("%w: $where", core.ErrScriptDisabled)
	}
	strict := ctx.Options().UseStrictMode

	switch fn := value.(type) {
	case func(interface{}) bool:
		return func(obj interface{}) (bool, error) { return fn(obj), nil }, nil
	case func(interface{}) (bool, error):
		return fn, nil
	case func(map[string]interface{}) bool:
		return func(obj interface{}) (bool, error) {
			m, _ := obj.(map[string]interface{})
			return fn(m), nil
		}, nil
	case core.Predicate:
		return fn, nil
	case string:
		program, err := CompileScript(fn)
		if err != nil {
			return nil, err
		}
		return func(obj interface{}) (bool, error) {
			v, err := RunScript(program, obj, nil)
			if err != nil {
				return false, err
			}
			return document.Truthy(v, strict), nil
		}, nil
	}
	return nil, fmt.Errorf("%w: $where needs a function or script, got %T", core.ErrInvalidArgument, value)
}

// CompileScript compiles an expr-lang script. Unknown identifiers
// evaluate to nil so that scripts can refer to optional fields.
func CompileScript(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: script: %v", core.ErrInvalidArgument, err)
	}
	return program, nil
}

// RunScript runs a compiled script with the fields of obj, "this" bound
// to obj and the extra variables in vars
func RunScript(program *vm.Program, obj interface{}, vars map[string]interface{}) (interface{}, error) {
	env := make(map[string]interface{})
	if m, ok := obj.(map[string]interface{}); ok {
		for k, v := range m {
			env[k] = v
		}
	}
	for k, v := range vars {
		env[k] = v
	}
	env["this"] = obj

	v, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return v, nil
}
