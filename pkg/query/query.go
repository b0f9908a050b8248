// Package query compiles MongoDB-style filter documents into predicates
// and iterates matching documents through cursors.
package query

import (
	"fmt"
	"regexp"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
)

// Operator names compiled against the whole document instead of a field
const (
	OpAnd        = "$and"
	OpOr         = "$or"
	OpNor        = "$nor"
	OpExpr       = "$expr"
	OpJSONSchema = "$jsonSchema"
	OpWhere      = "$where"
)

var topLevelOperators = map[string]bool{
	OpAnd:        true,
	OpOr:         true,
	OpNor:        true,
	OpExpr:       true,
	OpJSONSchema: true,
}

// Query is a compiled filter. The compiled predicates are never modified
// after New returns, so a Query can be reused across documents.
type Query struct {
	criteria  map[string]interface{}
	ctx       *core.Context
	compiled  []core.Predicate
	operators []string
}

// New compiles criteria. Nil options use core.DefaultOptions.
func New(criteria map[string]interface{}, opts *core.Options) (*Query, error) {
	return Compile(criteria, core.NewContext(opts))
}

// Compile compiles criteria within an existing evaluation context. It is
// used by operators that compile nested conditions.
func Compile(criteria map[string]interface{}, ctx *core.Context) (*Query, error) {
	if criteria == nil {
		criteria = map[string]interface{}{}
	}
	q := &Query{criteria: criteria, ctx: ctx}

	var where interface{}
	hasWhere := false
	for field, expr := range criteria {
		switch {
		case field == OpWhere:
			where, hasWhere = expr, true
		case topLevelOperators[field]:
			if err := q.processOperator(field, field, expr); err != nil {
				return nil, err
			}
		default:
			if core.IsOperator(field) {
				return nil, fmt.Errorf("%w: unknown top level operator %s", core.ErrUnknownOperator, field)
			}
			normalized, err := Normalize(expr)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			for op, val := range normalized {
				if err := q.processOperator(field, op, val); err != nil {
					return nil, err
				}
			}
		}
	}
	// $where runs last, after the cheaper predicates had a chance to fail
	if hasWhere {
		if err := q.processOperator(OpWhere, OpWhere, where); err != nil {
			return nil, err
		}
	}

	ctx.Logger().Debug("compiled query", "predicates", len(q.compiled), "operators", q.operators)
	return q, nil
}

func (q *Query) processOperator(field, operator string, value interface{}) error {
	fn, ok := q.ctx.QueryOperator(operator)
	if !ok {
		return fmt.Errorf("%w: query operator %s", core.ErrUnknownOperator, operator)
	}
	pred, err := fn(field, value, q.ctx)
	if err != nil {
		return fmt.Errorf("%s %s: %w", field, operator, err)
	}
	q.compiled = append(q.compiled, pred)
	q.operators = append(q.operators, operator)
	return nil
}

// Normalize turns a field condition into an operator document. Literal
// values become {$eq: v}, regular expressions become {$regex: re}, and a
// $regex given as a string is compiled together with $options.
func Normalize(expr interface{}) (map[string]interface{}, error) {
	if document.IsSimple(expr) {
		if document.IsRegexp(expr) {
			return map[string]interface{}{"$regex": expr}, nil
		}
		return map[string]interface{}{"$eq": expr}, nil
	}

	m, ok := expr.(map[string]interface{})
	if !ok {
		return map[string]interface{}{"$eq": expr}, nil
	}

	hasOperator := false
	for k := range m {
		if core.IsOperator(k) {
			hasOperator = true
			break
		}
	}
	if !hasOperator {
		return map[string]interface{}{"$eq": expr}, nil
	}

	if pattern, ok := m["$regex"]; ok {
		flags, _ := m["$options"].(string)
		re, err := CompileRegex(pattern, flags)
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			if k != "$options" {
				out[k] = v
			}
		}
		out["$regex"] = re
		return out, nil
	}
	return m, nil
}

// CompileRegex builds a regular expression from a pattern and MongoDB
// option letters. Supported options are i, m and s.
func CompileRegex(pattern interface{}, options string) (*regexp.Regexp, error) {
	var src string
	switch p := pattern.(type) {
	case string:
		src = p
	case *regexp.Regexp:
		if options == "" {
			return p, nil
		}
		src = p.String()
	default:
		return nil, fmt.Errorf("%w: $regex must be a string or regular expression, got %T", core.ErrInvalidArgument, pattern)
	}

	flags := ""
	for _, c := range options {
		switch c {
		case 'i', 'm', 's':
			flags += string(c)
		case 'g', 'u':
		default:
			return nil, fmt.Errorf("%w: unsupported $options flag %q", core.ErrInvalidArgument, c)
		}
	}
	if flags != "" {
		src = "(?" + flags + ")" + src
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	return re, nil
}

// Criteria returns the condition the query was compiled from
func (q *Query) Criteria() map[string]interface{} {
	return q.criteria
}

// Test reports whether obj matches every compiled predicate
func (q *Query) Test(obj interface{}) (bool, error) {
	for _, pred := range q.compiled {
		ok, err := pred(obj)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Find returns a cursor over the documents of collection that match,
// with an optional projection applied
func (q *Query) Find(collection []interface{}, projection map[string]interface{}) *Cursor {
	return NewCursor(lazy.FromSlice(collection), q.Test, projection, q.ctx)
}

// FindIter is like Find but reads from a lazy sequence
func (q *Query) FindIter(source *lazy.Iterator, projection map[string]interface{}) *Cursor {
	return NewCursor(source, q.Test, projection, q.ctx)
}

// Remove returns the documents of collection that do not match
func (q *Query) Remove(collection []interface{}) ([]interface{}, error) {
	out := make([]interface{}, 0, len(collection))
	for _, obj := range collection {
		ok, err := q.Test(obj)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, obj)
		}
	}
	return out, nil
}
