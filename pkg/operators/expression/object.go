package expression

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var objectOperators = map[string]core.ExpressionFunc{
	"$getField":     getField,
	"$mergeObjects": mergeObjects,
	"$setField":     setField,
}

// getField reads a field without path interpretation, so names holding
// dots or starting with '$' can be read
func getField(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	var fieldExpr, inputExpr interface{} = expr, "$$CURRENT"
	if m, ok := expr.(map[string]interface{}); ok {
		if _, err := object("$getField", m, "field"); err != nil {
			return nil, err
		}
		fieldExpr = m["field"]
		if in, has := m["input"]; has {
			inputExpr = in
		}
	}
	field, ok := fieldExpr.(string)
	if !ok {
		return nil, fmt.Errorf("%w: $getField field must be a string", core.ErrInvalidArgument)
	}
	input, err := compute(obj, inputExpr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(input) {
		return nil, nil
	}
	m, ok := input.(map[string]interface{})
	if !ok {
		return document.Undefined, nil
	}
	if v, has := m[field]; has {
		return v, nil
	}
	return document.Undefined, nil
}

// MergeObjects merges documents left to right. Null and missing values
// are skipped.
func MergeObjects(docs []interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, d := range docs {
		if document.IsNil(d) {
			continue
		}
		m, ok := d.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: $mergeObjects needs documents, got %T", core.ErrInvalidArgument, d)
		}
		for k, v := range m {
			if !document.IsUndefined(v) {
				out[k] = v
			}
		}
	}
	return out, nil
}

func mergeObjects(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	return MergeObjects(vals)
}

// setField adds, updates or, with $$REMOVE, removes a field of a copy of
// input
func setField(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$setField", expr, "field", "input", "value")
	if err != nil {
		return nil, err
	}
	field, ok := m["field"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: $setField field must be a string", core.ErrInvalidArgument)
	}
	input, err := compute(obj, m["input"], ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(input) {
		return nil, nil
	}
	doc, ok := input.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $setField input must be a document", core.ErrInvalidArgument)
	}
	value, err := compute(obj, m["value"], ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	if document.IsUndefined(value) {
		delete(out, field)
	} else {
		out[field] = value
	}
	return out, nil
}
