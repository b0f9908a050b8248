// Package stage implements the pipeline operators of the aggregation
// framework. Every stage turns one lazy sequence into another; stages
// that need the whole input, such as $sort and $group, realize it
// through Transform.
package stage

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// Operators returns the built-in pipeline stages by name
func Operators() map[string]core.PipelineFunc {
	return map[string]core.PipelineFunc{
		"$addFields":   AddFields,
		"$count":       Count,
		"$facet":       Facet,
		"$group":       Group,
		"$limit":       Limit,
		"$lookup":      Lookup,
		"$match":       Match,
		"$project":     Project,
		"$redact":      Redact,
		"$replaceRoot": ReplaceRoot,
		"$replaceWith": ReplaceWith,
		"$set":         AddFields,
		"$skip":        Skip,
		"$sort":        Sort,
		"$sortByCount": SortByCount,
		"$unionWith":   UnionWith,
		"$unset":       Unset,
		"$unwind":      Unwind,
	}
}

// SharesInput lists the stages whose output documents may reference
// parts of their input documents.
var SharesInput = map[string]bool{
	"$facet":       true,
	"$group":       true,
	"$lookup":      true,
	"$sortByCount": true,
	"$unwind":      true,
}

// Register adds the built-in stages to r
func Register(r *core.Registry) error {
	for name, fn := range Operators() {
		if err := r.Register(core.ClassPipeline, name, fn); err != nil {
			return err
		}
	}
	return nil
}

func invalid(op, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s %s", core.ErrInvalidArgument, op, fmt.Sprintf(format, args...))
}

func count(op string, expr interface{}) (int, error) {
	if !document.IsInteger(expr) {
		return 0, invalid(op, "requires an integer, got %T", expr)
	}
	n, _ := document.ToInt64(expr)
	if n < 0 {
		return 0, invalid(op, "requires a non-negative integer")
	}
	return int(n), nil
}

// Match keeps the documents matching a query
func Match(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	criteria, ok := expr.(map[string]interface{})
	if !ok {
		return nil, invalid("$match", "requires a query document")
	}
	q, err := query.Compile(criteria, ctx)
	if err != nil {
		return nil, err
	}
	return it.Filter(q.Test), nil
}

// Skip drops the first n documents
func Skip(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	n, err := count("$skip", expr)
	if err != nil {
		return nil, err
	}
	return it.Drop(n), nil
}

// Limit passes through at most n documents
func Limit(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	n, err := count("$limit", expr)
	if err != nil {
		return nil, err
	}
	return it.Take(n), nil
}

func shallow(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asObject(op string, v interface{}) (map[string]interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, invalid(op, "expects documents, got %s", document.TypeOf(v))
	}
	return m, nil
}
