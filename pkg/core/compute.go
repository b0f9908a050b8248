package core

import (
	"fmt"
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// Redaction tokens returned by $redact expressions
const (
	RedactKeep    = "$$KEEP"
	RedactPrune   = "$$PRUNE"
	RedactDescend = "$$DESCEND"
)

// System variables
const (
	VarRoot    = "$$ROOT"
	VarCurrent = "$$CURRENT"
	VarRemove  = "$$REMOVE"
	VarNow     = "$$NOW"
)

func isRedactToken(s string) bool {
	return s == RedactKeep || s == RedactPrune || s == RedactDescend
}

// ComputeValue evaluates expr against obj.
//
// With a non-empty operator the call dispatches to the expression
// operator of that name, or to the accumulator of that name, in which
// case obj is first turned into a collection. Otherwise strings starting
// with "$$" are variables, strings starting with "$" are field paths
// resolved against the root, slices are evaluated element-wise, and maps
// are evaluated per key. A map holding an operator key must hold only
// that key and evaluates to the operator's result. Any other value is a
// literal.
func ComputeValue(obj interface{}, expr interface{}, operator string, ctx *Context) (interface{}, error) {
	ctx = ctx.WithCurrent(obj)

	if operator != "" {
		return computeOperator(obj, expr, operator, ctx)
	}

	switch e := expr.(type) {
	case string:
		if strings.HasPrefix(e, "$") {
			return computeReference(obj, e, ctx)
		}
	case []interface{}:
		out := make([]interface{}, len(e))
		for i, item := range e {
			v, err := ComputeValue(obj, item, "", ctx)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(e))
		for key, val := range e {
			if IsOperator(key) {
				if !isComputeOperator(key, ctx) {
					return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, key)
				}
				if len(e) != 1 {
					return nil, fmt.Errorf("%w: an operator expression takes exactly one key, got %d", ErrInvalidExpression, len(e))
				}
				return computeOperator(obj, val, key, ctx)
			}
			v, err := ComputeValue(obj, val, "", ctx)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	}
	return expr, nil
}

func isComputeOperator(name string, ctx *Context) bool {
	if _, ok := ctx.Lookup(ClassExpression, name); ok {
		return true
	}
	_, ok := ctx.Lookup(ClassAccumulator, name)
	return ok
}

func computeOperator(obj interface{}, expr interface{}, operator string, ctx *Context) (interface{}, error) {
	if fn, ok := ctx.ExpressionOperator(operator); ok {
		return fn(obj, expr, ctx)
	}

	fn, ok := ctx.AccumulatorOperator(operator)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperator, operator)
	}
	coll, isArray := obj.([]interface{})
	if !isArray {
		v, err := ComputeValue(obj, expr, "", ctx)
		if err != nil {
			return nil, err
		}
		if coll, isArray = v.([]interface{}); !isArray {
			return nil, fmt.Errorf("%w: %s target must be an array", ErrInvalidArgument, operator)
		}
		expr = nil
	}
	// elements are not addressed relative to the outer root
	return fn(coll, expr, ctx.WithoutRoot())
}

func computeReference(obj interface{}, expr string, ctx *Context) (interface{}, error) {
	if isRedactToken(expr) {
		return expr, nil
	}

	head, rest, _ := strings.Cut(expr, ".")
	var base interface{}

	switch {
	case head == VarRoot:
		base = ctx.Root()
	case head == VarCurrent:
		base = obj
	case head == VarRemove:
		base = document.Undefined
	case head == VarNow:
		base = ctx.Timestamp()
	case strings.HasPrefix(head, "$$"):
		name := head[2:]
		vars := make(map[string]interface{}, len(ctx.opts.Variables)+len(ctx.vars)+1)
		for k, v := range ctx.opts.Variables {
			vars[k] = v
		}
		vars["this"] = obj
		for k, v := range ctx.vars {
			vars[k] = v
		}
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
		}
		base = vars
		rest = expr[2:]
	default:
		base = ctx.Root()
		rest = expr[1:]
	}

	if rest == "" {
		return base, nil
	}
	return path.Resolve(base, rest), nil
}

// Redact evaluates expr against obj and applies the resulting redaction
// token. $$KEEP returns obj, $$PRUNE returns document.Undefined and
// $$DESCEND keeps obj while redacting its embedded documents.
func Redact(obj interface{}, expr interface{}, ctx *Context) (interface{}, error) {
	result, err := ComputeValue(obj, expr, "", ctx)
	if err != nil {
		return nil, err
	}

	token, _ := result.(string)
	switch token {
	case RedactKeep:
		return obj, nil
	case RedactPrune:
		return document.Undefined, nil
	case RedactDescend:
	default:
		return result, nil
	}

	m, isMap := expr.(map[string]interface{})
	if _, hasCond := m["$cond"]; !isMap || !hasCond {
		return obj, nil
	}
	doc, ok := obj.(map[string]interface{})
	if !ok {
		return obj, nil
	}

	out := make(map[string]interface{}, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case []interface{}:
			values := make([]interface{}, 0, len(v))
			for _, elem := range v {
				if _, isDoc := elem.(map[string]interface{}); isDoc {
					redacted, err := Redact(elem, expr, ctx.WithRoot(elem))
					if err != nil {
						return nil, err
					}
					elem = redacted
				}
				if !document.IsNil(elem) {
					values = append(values, elem)
				}
			}
			out[key] = values
		case map[string]interface{}:
			redacted, err := Redact(v, expr, ctx.WithRoot(v))
			if err != nil {
				return nil, err
			}
			if !document.IsNil(redacted) {
				out[key] = redacted
			}
		default:
			out[key] = value
		}
	}
	return out, nil
}
