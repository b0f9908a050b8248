// Package document implements the value model shared by the query,
// aggregation and update engines: type tags, ordering, equality,
// canonical encoding, hashing, cloning and hash-bucketed set helpers.
//
// Documents are plain Go trees: map[string]interface{} for mappings,
// []interface{} for sequences, and scalars (nil, bool, any numeric kind,
// string, time.Time, *regexp.Regexp, []byte, ObjectID).
package document

type undefined struct{}

func (undefined) String() string { return "undefined" }

type missing struct{}

func (missing) String() string { return "missing" }

var (
	// Undefined is the value of a field that does not exist. It is
	// distinct from nil, which is an explicit null.
	Undefined interface{} = undefined{}

	// Missing marks a value that was never produced. It is used while
	// assembling partial results and is stripped before results are
	// returned to callers.
	Missing interface{} = missing{}
)

// IsUndefined reports whether v is Undefined or Missing
func IsUndefined(v interface{}) bool {
	switch v.(type) {
	case undefined, missing:
		return true
	}
	return false
}

// IsMissing reports whether v is the Missing marker
func IsMissing(v interface{}) bool {
	_, ok := v.(missing)
	return ok
}

// IsNil reports whether v is null, undefined or missing
func IsNil(v interface{}) bool {
	return v == nil || IsUndefined(v)
}

// Encodable is implemented by user-defined types whose members should
// take part in canonical encoding and hashing. Types that do not
// implement it are encoded by identity only.
type Encodable interface {
	TypeName() string
	Members() map[string]interface{}
}

// Cloner is implemented by user-defined types that can produce a deep
// copy of themselves. Other user types are shared by reference when
// cloned.
type Cloner interface {
	CloneValue() interface{}
}

// Truthy applies JavaScript truthiness. In strict mode the empty string
// is truthy, matching MongoDB.
func Truthy(v interface{}, strict bool) bool {
	switch val := v.(type) {
	case nil, undefined, missing:
		return false
	case bool:
		return val
	case string:
		return val != "" || strict
	}
	if f, ok := ToFloat64(v); ok {
		return f != 0 && f == f
	}
	return true
}

// EnsureArray wraps a non-array value in a single element array.
// Undefined becomes an empty array.
func EnsureArray(v interface{}) []interface{} {
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	if IsUndefined(v) {
		return []interface{}{}
	}
	return []interface{}{v}
}

// Flatten flattens nested arrays up to depth levels. A negative depth
// flattens completely.
func Flatten(xs []interface{}, depth int) []interface{} {
	result := make([]interface{}, 0, len(xs))
	var flatten func(arr []interface{}, d int)
	flatten = func(arr []interface{}, d int) {
		for _, item := range arr {
			if inner, ok := item.([]interface{}); ok && (d > 0 || d < 0) {
				flatten(inner, d-1)
			} else {
				result = append(result, item)
			}
		}
	}
	flatten(xs, depth)
	return result
}
