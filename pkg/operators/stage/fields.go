package stage

import (
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// AddFields sets computed fields on every document. A field whose
// expression evaluates to $$REMOVE is deleted.
func AddFields(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	fields, ok := expr.(map[string]interface{})
	if !ok {
		return nil, invalid("$addFields", "requires a document")
	}
	if len(fields) == 0 {
		return it, nil
	}
	nested := false
	for field := range fields {
		nested = nested || strings.Contains(field, ".")
	}
	return it.Map(func(v interface{}) (interface{}, error) {
		obj, err := asObject("$addFields", v)
		if err != nil {
			return nil, err
		}
		out := shallow(obj)
		if nested {
			// dotted fields write into embedded documents
			c, err := document.CloneDeep(obj)
			if err != nil {
				return nil, err
			}
			out = c.(map[string]interface{})
		}
		for field, e := range fields {
			val, err := core.ComputeValue(obj, e, "", ctx.WithRoot(obj))
			if err != nil {
				return nil, err
			}
			if document.IsUndefined(val) {
				if err := path.RemoveValue(out, field, false); err != nil {
					return nil, err
				}
				continue
			}
			if err := path.SetValue(out, field, val); err != nil {
				return nil, err
			}
		}
		return out, nil
	}), nil
}

// Unset removes one or more fields. It is shorthand for an exclusion
// $project.
func Unset(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	spec := map[string]interface{}{}
	for _, f := range document.EnsureArray(expr) {
		name, ok := f.(string)
		if !ok || name == "" {
			return nil, invalid("$unset", "takes field names")
		}
		spec[name] = 0
	}
	return Project(it, spec, ctx)
}

// Count replaces the input with a single document holding the number of
// documents under the given field.
func Count(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	name, ok := expr.(string)
	if !ok || name == "" || strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
		return nil, invalid("$count", "requires a non-empty field name without '$' or '.'")
	}
	return it.Transform(func(coll []interface{}) ([]interface{}, error) {
		return []interface{}{map[string]interface{}{name: int64(len(coll))}}, nil
	}), nil
}

// Redact prunes document content by evaluating expr at every level
func Redact(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	return it.Map(func(obj interface{}) (interface{}, error) {
		return core.Redact(obj, expr, ctx.WithRoot(obj))
	}).Filter(func(v interface{}) (bool, error) {
		return !document.IsUndefined(v), nil
	}), nil
}

// ReplaceRoot promotes the document computed by {newRoot: <expr>}
func ReplaceRoot(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	spec, ok := expr.(map[string]interface{})
	if !ok {
		return nil, invalid("$replaceRoot", "requires a document")
	}
	root, ok := spec["newRoot"]
	if !ok {
		return nil, invalid("$replaceRoot", "requires 'newRoot'")
	}
	return replace("$replaceRoot", it, root, ctx), nil
}

// ReplaceWith is ReplaceRoot taking the expression directly
func ReplaceWith(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	return replace("$replaceWith", it, expr, ctx), nil
}

func replace(op string, it *lazy.Iterator, expr interface{}, ctx *core.Context) *lazy.Iterator {
	return it.Map(func(obj interface{}) (interface{}, error) {
		v, err := core.ComputeValue(obj, expr, "", ctx.WithRoot(obj))
		if err != nil {
			return nil, err
		}
		if !document.IsObject(v) {
			return nil, invalid(op, "must evaluate to a document, got %s", document.TypeOf(v))
		}
		return v, nil
	})
}
