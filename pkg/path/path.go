// Package path resolves and mutates dotted field paths ("a.b.0.c") over
// documents made of maps and slices.
//
// A purely numeric segment always addresses a sequence index. Any other
// segment that meets a sequence is broadcast over its elements.
package path

import (
	"strconv"
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// IsNumericKey reports whether a path segment is a sequence index
func IsNumericKey(key string) bool {
	if key == "" {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	return true
}

// Split breaks a selector into its segments
func Split(selector string) []string {
	return strings.Split(selector, ".")
}

// Get returns the value stored under key in a map, or at the index key
// in a slice. It returns document.Undefined when there is none.
func Get(container interface{}, key string) interface{} {
	switch c := container.(type) {
	case map[string]interface{}:
		if v, ok := c[key]; ok {
			return v
		}
	case []interface{}:
		if IsNumericKey(key) {
			if i, err := strconv.Atoi(key); err == nil && i < len(c) {
				return c[i]
			}
		}
	}
	return document.Undefined
}

// Has reports whether container holds key
func Has(container interface{}, key string) bool {
	switch c := container.(type) {
	case map[string]interface{}:
		_, ok := c[key]
		return ok
	case []interface{}:
		i, err := strconv.Atoi(key)
		return err == nil && IsNumericKey(key) && i < len(c)
	}
	return false
}

// Set stores v under key. Slices are written in place, so an index past
// the end is ignored; use SetValue to grow sequences.
func Set(container interface{}, key string, v interface{}) {
	switch c := container.(type) {
	case map[string]interface{}:
		c[key] = v
	case []interface{}:
		if i, err := strconv.Atoi(key); err == nil && i < len(c) {
			c[i] = v
		}
	}
}

// Delete removes key from a map container
func Delete(container interface{}, key string) {
	if c, ok := container.(map[string]interface{}); ok {
		delete(c, key)
	}
}

// grow extends a slice with nils so that index i is addressable
func grow(arr []interface{}, i int) []interface{} {
	for len(arr) <= i {
		arr = append(arr, nil)
	}
	return arr
}
