package path

import (
	"strconv"
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// ResolveOption configures Resolve
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	unwrapArray bool
}

// WithUnwrapArray unwraps single element arrays produced by broadcasting,
// up to the number of sequences that were traversed.
func WithUnwrapArray() ResolveOption {
	return func(o *resolveOptions) {
		o.unwrapArray = true
	}
}

// Resolve returns the value at selector. When a non-numeric segment meets
// a sequence, the rest of the path is resolved against every element and
// the defined results are collected. Nested sequences are not descended
// again from later positions. Absent values resolve to document.Undefined.
func Resolve(obj interface{}, selector string, opts ...ResolveOption) interface{} {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	if document.IsSimple(obj) {
		return document.Undefined
	}

	depth := 0
	res := resolve(obj, Split(selector), &depth)
	if arr, ok := res.([]interface{}); ok && o.unwrapArray {
		return unwrap(arr, depth)
	}
	return res
}

func resolve(obj interface{}, names []string, depth *int) interface{} {
	value := obj
	for i, field := range names {
		if arr, ok := value.([]interface{}); ok && !IsNumericKey(field) {
			// stop rather than iterate a nested array from a later key
			if i == 0 && *depth > 0 {
				break
			}
			*depth++
			rest := names[i:]
			collected := make([]interface{}, 0, len(arr))
			for _, item := range arr {
				if v := resolve(item, rest, depth); !document.IsUndefined(v) {
					collected = append(collected, v)
				}
			}
			value = collected
			break
		}

		value = Get(value, field)
		if document.IsUndefined(value) {
			break
		}
	}
	return value
}

func unwrap(arr []interface{}, depth int) interface{} {
	var value interface{} = arr
	for ; depth > 0; depth-- {
		a, ok := value.([]interface{})
		if !ok || len(a) != 1 {
			break
		}
		value = a[0]
	}
	return value
}

// GraphOptions configures ResolveGraph
type GraphOptions struct {
	// PreserveMissing keeps a document.Missing placeholder for elements
	// that do not resolve, so that positions line up when merging.
	PreserveMissing bool
	// PreserveKeys copies sibling keys of every traversed map.
	PreserveKeys bool
	// PreserveIndex keeps undefined entries for unresolved elements.
	PreserveIndex bool
}

// ResolveGraph resolves selector like Resolve but returns the value
// wrapped in the maps and slices needed to reach it, e.g. resolving
// "a.b" in {a:{b:1,c:2}} yields {a:{b:1}}.
func ResolveGraph(obj interface{}, selector string, opts GraphOptions) interface{} {
	names := Split(selector)
	key := names[0]
	next := names[1:]

	if arr, ok := obj.([]interface{}); ok {
		if IsNumericKey(key) {
			i, _ := strconv.Atoi(key)
			var result interface{} = document.Undefined
			if i < len(arr) {
				result = arr[i]
			}
			if len(next) > 0 {
				result = ResolveGraph(result, strings.Join(next, "."), opts)
			}
			return []interface{}{result}
		}

		result := make([]interface{}, 0, len(arr))
		for _, item := range arr {
			value := ResolveGraph(item, selector, opts)
			switch {
			case opts.PreserveMissing:
				if document.IsUndefined(value) {
					value = document.Missing
				}
				result = append(result, value)
			case !document.IsUndefined(value) || opts.PreserveIndex:
				result = append(result, value)
			}
		}
		return result
	}

	value := Get(obj, key)
	if len(next) > 0 {
		value = ResolveGraph(value, strings.Join(next, "."), opts)
	}
	if document.IsUndefined(value) {
		return document.Undefined
	}

	result := make(map[string]interface{})
	if m, ok := obj.(map[string]interface{}); ok && opts.PreserveKeys {
		for k, v := range m {
			result[k] = v
		}
	}
	result[key] = value
	return result
}
