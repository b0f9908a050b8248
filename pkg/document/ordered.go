package document

import "sort"

// E is a key/value pair of an ordered document
type E struct {
	Key   string
	Value interface{}
}

// D is an ordered document. It is accepted where key order is
// significant, such as sort specifications, since Go maps do not keep
// insertion order.
type D []E

// Map converts d to a plain mapping
func (d D) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(d))
	for _, e := range d {
		m[e.Key] = e.Value
	}
	return m
}

// Ordered returns the entries of an ordered document, or of a plain
// mapping with its keys in lexical order. ok is false for other values.
func Ordered(v interface{}) (d D, ok bool) {
	switch val := v.(type) {
	case D:
		return val, true
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d = make(D, len(keys))
		for i, k := range keys {
			d[i] = E{Key: k, Value: val[k]}
		}
		return d, true
	}
	return nil, false
}
