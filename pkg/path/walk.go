package path

import (
	"fmt"
	"strconv"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// WalkOptions controls how Walk treats missing and sequence values
type WalkOptions struct {
	// BuildGraph creates empty maps for missing intermediate segments
	// and grows sequences so that a numeric final segment is addressable.
	BuildGraph bool
	// DescendArray visits every element of a sequence met before the
	// final segment, unless the next segment is an explicit index.
	DescendArray bool
}

// Visitor is called with the container holding the final path segment
type Visitor func(container interface{}, key string) error

// replacer is a visitor that may return a new container for the parent
// to store, which is how sequences shrink or grow.
type replacer func(container interface{}, key string) (interface{}, error)

// Walk follows selector through obj and calls visit with the container
// of the final segment. A sequence at the root cannot be replaced, so
// growth only applies to nested sequences.
func Walk(obj interface{}, selector string, visit Visitor, opts WalkOptions) error {
	_, err := walk(obj, Split(selector), func(c interface{}, k string) (interface{}, error) {
		return c, visit(c, k)
	}, opts)
	return err
}

func walk(obj interface{}, names []string, fn replacer, opts WalkOptions) (interface{}, error) {
	key := names[0]

	if len(names) == 1 {
		switch c := obj.(type) {
		case map[string]interface{}:
			return fn(c, key)
		case []interface{}:
			if !IsNumericKey(key) {
				return obj, nil
			}
			if opts.BuildGraph {
				i, _ := strconv.Atoi(key)
				c = grow(c, i)
			}
			return fn(c, key)
		}
		return obj, nil
	}

	item := Get(obj, key)
	if opts.BuildGraph && document.IsNil(item) {
		switch c := obj.(type) {
		case map[string]interface{}:
			item = map[string]interface{}{}
			c[key] = item
		case []interface{}:
			if IsNumericKey(key) {
				i, _ := strconv.Atoi(key)
				c = grow(c, i)
				item = map[string]interface{}{}
				c[i] = item
				obj = c
			}
		}
	}
	if document.IsNil(item) {
		return obj, nil
	}

	if arr, ok := item.([]interface{}); ok && opts.DescendArray && !IsNumericKey(names[1]) {
		for i, elem := range arr {
			out, err := walk(elem, names[1:], fn, opts)
			if err != nil {
				return obj, err
			}
			arr[i] = out
		}
		return obj, nil
	}

	out, err := walk(item, names[1:], fn, opts)
	if err != nil {
		return obj, err
	}
	if _, ok := out.([]interface{}); ok {
		Set(obj, key, out)
	}
	return obj, nil
}

// SetValue assigns value at selector, creating intermediate maps as needed
func SetValue(obj interface{}, selector string, value interface{}) error {
	return Walk(obj, selector, func(c interface{}, k string) error {
		Set(c, k, value)
		return nil
	}, WalkOptions{BuildGraph: true})
}

// RemoveValue deletes the value at selector. Numeric final segments
// remove the element from its sequence. With descendArray set, a key is
// removed from every map element of a sequence.
func RemoveValue(obj interface{}, selector string, descendArray bool) error {
	_, err := walk(obj, Split(selector), func(c interface{}, k string) (interface{}, error) {
		switch item := c.(type) {
		case []interface{}:
			if IsNumericKey(k) {
				i, _ := strconv.Atoi(k)
				if i < len(item) {
					return append(item[:i:i], item[i+1:]...), nil
				}
			} else if descendArray {
				for _, elem := range item {
					Delete(elem, k)
				}
			}
		case map[string]interface{}:
			delete(item, k)
		}
		return c, nil
	}, WalkOptions{DescendArray: descendArray})
	return err
}

// Merge merges obj into target. Both must be maps or both slices. With
// flatten set, slices are merged position by position instead of
// appended.
func Merge(target, obj interface{}, flatten bool) (interface{}, error) {
	if document.IsNil(target) {
		return obj, nil
	}
	if document.IsNil(obj) {
		return target, nil
	}

	switch t := target.(type) {
	case []interface{}:
		o, ok := obj.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %T and %T", document.ErrMismatchedTypes, target, obj)
		}
		if !flatten {
			return append(t, o...), nil
		}
		i := 0
		for ; i < len(t) && i < len(o); i++ {
			merged, err := Merge(t[i], o[i], flatten)
			if err != nil {
				return nil, err
			}
			t[i] = merged
		}
		return append(t, o[i:]...), nil
	case map[string]interface{}:
		o, ok := obj.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %T and %T", document.ErrMismatchedTypes, target, obj)
		}
		for k, v := range o {
			existing, ok := t[k]
			if !ok || document.IsUndefined(existing) {
				t[k] = v
				continue
			}
			merged, err := Merge(existing, v, flatten)
			if err != nil {
				return nil, err
			}
			t[k] = merged
		}
		return t, nil
	}
	return nil, fmt.Errorf("%w: %T and %T", document.ErrMismatchedTypes, target, obj)
}

// FilterMissing strips document.Missing from maps and slices, recursively
func FilterMissing(v interface{}) interface{} {
	switch val := v.(type) {
	case []interface{}:
		out := val[:0]
		for _, item := range val {
			if document.IsMissing(item) {
				continue
			}
			out = append(out, FilterMissing(item))
		}
		return out
	case map[string]interface{}:
		for k, item := range val {
			if document.IsMissing(item) {
				delete(val, k)
				continue
			}
			val[k] = FilterMissing(item)
		}
	}
	return v
}
