package document

import (
	"reflect"
	"regexp"
	"time"
)

// Type is the tag used for ordering and type dispatch of a value
type Type byte

const (
	TypeUndefined Type = iota
	TypeNull
	TypeNumber
	TypeString
	TypeObject
	TypeArray
	TypeBinary
	TypeObjectID
	TypeBoolean
	TypeDate
	TypeRegexp
	TypeFunction
	TypeUnknown
)

// String returns the string representation of the type
func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeBinary:
		return "binary"
	case TypeObjectID:
		return "objectid"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeRegexp:
		return "regexp"
	case TypeFunction:
		return "function"
	default:
		return "unknown"
	}
}

// rank is the sort position of a type. null and undefined share a rank.
func (t Type) rank() int {
	switch t {
	case TypeUndefined, TypeNull:
		return 0
	case TypeNumber:
		return 1
	case TypeString:
		return 2
	case TypeObject:
		return 3
	case TypeArray:
		return 4
	case TypeBinary:
		return 5
	case TypeObjectID:
		return 6
	case TypeBoolean:
		return 7
	case TypeDate:
		return 8
	case TypeRegexp:
		return 9
	case TypeFunction:
		return 10
	default:
		return 11
	}
}

// TypeOf returns the tag of a value
func TypeOf(v interface{}) Type {
	switch val := v.(type) {
	case nil:
		return TypeNull
	case undefined, missing:
		return TypeUndefined
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return TypeNumber
	case string:
		return TypeString
	case time.Time:
		return TypeDate
	case *time.Time:
		if val == nil {
			return TypeNull
		}
		return TypeDate
	case *regexp.Regexp:
		if val == nil {
			return TypeNull
		}
		return TypeRegexp
	case []interface{}:
		return TypeArray
	case map[string]interface{}:
		return TypeObject
	case []byte:
		return TypeBinary
	case ObjectID:
		return TypeObjectID
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return TypeFunction
	}
	return TypeUnknown
}

// IsArray reports whether v is a sequence
func IsArray(v interface{}) bool {
	_, ok := v.([]interface{})
	return ok
}

// IsObject reports whether v is a plain mapping
func IsObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

// IsString reports whether v is a string
func IsString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

// IsDate reports whether v is a date
func IsDate(v interface{}) bool {
	return TypeOf(v) == TypeDate
}

// IsRegexp reports whether v is a compiled regular expression
func IsRegexp(v interface{}) bool {
	return TypeOf(v) == TypeRegexp
}

// IsBoolean reports whether v is a bool
func IsBoolean(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

// IsFunction reports whether v is a Go func value
func IsFunction(v interface{}) bool {
	return v != nil && TypeOf(v) == TypeFunction
}

// IsSimple reports whether v is matched by value rather than by structure:
// null, undefined, booleans, numbers, strings, dates and regexps.
func IsSimple(v interface{}) bool {
	switch TypeOf(v) {
	case TypeNull, TypeUndefined, TypeBoolean, TypeNumber, TypeString, TypeDate, TypeRegexp, TypeObjectID:
		return true
	}
	return false
}

// toTime unwraps both time.Time and *time.Time
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

// ToTime returns the date held by v
func ToTime(v interface{}) (time.Time, bool) {
	return toTime(v)
}
