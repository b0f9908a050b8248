package stage

import (
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

type unwindOptions struct {
	field         string
	indexField    string
	preserveEmpty bool
}

func parseUnwind(expr interface{}) (*unwindOptions, error) {
	opts := &unwindOptions{}
	var p interface{} = expr
	if m, ok := expr.(map[string]interface{}); ok {
		p = m["path"]
		if idx, ok := m["includeArrayIndex"]; ok {
			s, ok := idx.(string)
			if !ok || s == "" || strings.HasPrefix(s, "$") {
				return nil, invalid("$unwind", "includeArrayIndex must be a field name")
			}
			opts.indexField = s
		}
		if keep, ok := m["preserveNullAndEmptyArrays"]; ok {
			b, ok := keep.(bool)
			if !ok {
				return nil, invalid("$unwind", "preserveNullAndEmptyArrays must be a boolean")
			}
			opts.preserveEmpty = b
		}
	}
	s, ok := p.(string)
	if !ok || !strings.HasPrefix(s, "$") || len(s) < 2 {
		return nil, invalid("$unwind", "path must be a field path starting with '$'")
	}
	opts.field = s[1:]
	return opts, nil
}

// Unwind emits one document per element of the array at the given path.
// Documents whose field is null, missing or an empty array are dropped
// unless preserveNullAndEmptyArrays is set.
func Unwind(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	opts, err := parseUnwind(expr)
	if err != nil {
		return nil, err
	}

	var pending []interface{}
	return lazy.FromFunc(func() (interface{}, bool, error) {
		for len(pending) == 0 {
			obj, ok, err := it.Next()
			if err != nil || !ok {
				return nil, false, err
			}
			if pending, err = opts.expand(obj); err != nil {
				return nil, false, err
			}
		}
		v := pending[0]
		pending = pending[1:]
		return v, true, nil
	}), nil
}

func (o *unwindOptions) expand(obj interface{}) ([]interface{}, error) {
	doc, err := asObject("$unwind", obj)
	if err != nil {
		return nil, err
	}
	value := path.Resolve(doc, o.field)
	arr, isArray := value.([]interface{})

	switch {
	case isArray && len(arr) > 0:
		out := make([]interface{}, 0, len(arr))
		for i, item := range arr {
			next := path.ResolveGraph(doc, o.field, path.GraphOptions{PreserveKeys: true}).(map[string]interface{})
			if err := path.SetValue(next, o.field, item); err != nil {
				return nil, err
			}
			if o.indexField != "" {
				next[o.indexField] = int64(i)
			}
			out = append(out, next)
		}
		return out, nil
	case !isArray && !document.IsNil(value):
		return []interface{}{o.withIndex(doc, nil)}, nil
	case o.preserveEmpty:
		if !isArray {
			return []interface{}{o.withIndex(doc, nil)}, nil
		}
		out := path.ResolveGraph(doc, o.field, path.GraphOptions{PreserveKeys: true}).(map[string]interface{})
		if err := path.RemoveValue(out, o.field, false); err != nil {
			return nil, err
		}
		return []interface{}{o.withIndex(out, nil)}, nil
	}
	return nil, nil
}

func (o *unwindOptions) withIndex(doc map[string]interface{}, idx interface{}) map[string]interface{} {
	if o.indexField == "" {
		return doc
	}
	out := shallow(doc)
	out[o.indexField] = idx
	return out
}
