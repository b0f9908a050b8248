package document

import (
	"math"
	"reflect"
)

// IsNumber reports whether v is any Go integer or floating point kind
func IsNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// IsInteger reports whether v is an integer kind, or a float holding an integral value
func IsInteger(v interface{}) bool {
	switch val := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return float64(val) == math.Trunc(float64(val))
	case float64:
		return val == math.Trunc(val) && !math.IsInf(val, 0)
	}
	return false
}

func isIntKind(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ToFloat64 converts a numeric value to float64
func ToFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// ToInt64 converts a numeric value to int64, truncating floats
func ToInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		return int64(val), true
	default:
		return 0, false
	}
}

// compareNumbers orders two numeric values. Integer kinds are compared
// exactly; anything involving a float goes through float64.
func compareNumbers(a, b interface{}) int {
	if isIntKind(a) && isIntKind(b) {
		ai, _ := ToInt64(a)
		bi, _ := ToInt64(b)
		// uint64 values past MaxInt64 wrap in ToInt64
		if reflect.TypeOf(a).Kind() == reflect.Uint64 || reflect.TypeOf(b).Kind() == reflect.Uint64 {
			af, _ := ToFloat64(a)
			bf, _ := ToFloat64(b)
			return cmpFloat(af, bf)
		}
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	af, _ := ToFloat64(a)
	bf, _ := ToFloat64(b)
	return cmpFloat(af, bf)
}

// NaN sorts before every other number, as in MongoDB.
func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// NormalizeNumber converts integral results back to int64 so that
// arithmetic on integers keeps producing integers.
func NormalizeNumber(f float64, preferInt bool) interface{} {
	if preferInt && f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
		return int64(f)
	}
	return f
}
