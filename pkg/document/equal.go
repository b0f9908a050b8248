package document

import (
	"bytes"
	"reflect"
	"regexp"
)

// Equal reports whether a and b are deeply equal. It walks both values
// with an explicit work stack. Numbers compare numerically across Go
// kinds; dates, regexps and ObjectIDs compare by their canonical form.
// User-defined types are equal only when they are the same value
// (identity), never structurally.
func Equal(a, b interface{}) bool {
	lhs := []interface{}{a}
	rhs := []interface{}{b}

	for len(lhs) > 0 {
		a, b = lhs[len(lhs)-1], rhs[len(rhs)-1]
		lhs, rhs = lhs[:len(lhs)-1], rhs[:len(rhs)-1]

		ta := TypeOf(a)
		if ta != TypeOf(b) {
			return false
		}

		switch ta {
		case TypeNull, TypeUndefined:
			continue
		case TypeBoolean:
			if a.(bool) != b.(bool) {
				return false
			}
		case TypeNumber:
			if compareNumbers(a, b) != 0 {
				return false
			}
		case TypeString:
			if a.(string) != b.(string) {
				return false
			}
		case TypeDate:
			x, _ := toTime(a)
			y, _ := toTime(b)
			if !x.Equal(y) {
				return false
			}
		case TypeRegexp:
			if a.(*regexp.Regexp).String() != b.(*regexp.Regexp).String() {
				return false
			}
		case TypeObjectID:
			if a.(ObjectID) != b.(ObjectID) {
				return false
			}
		case TypeBinary:
			if !bytes.Equal(a.([]byte), b.([]byte)) {
				return false
			}
		case TypeFunction:
			if reflect.ValueOf(a).Pointer() != reflect.ValueOf(b).Pointer() {
				return false
			}
		case TypeArray:
			x, y := a.([]interface{}), b.([]interface{})
			if len(x) != len(y) {
				return false
			}
			if sameRef(x, y) {
				continue
			}
			lhs = append(lhs, x...)
			rhs = append(rhs, y...)
		case TypeObject:
			x, y := a.(map[string]interface{}), b.(map[string]interface{})
			if len(x) != len(y) {
				return false
			}
			if sameRef(x, y) {
				continue
			}
			for k, v := range x {
				w, ok := y[k]
				if !ok {
					return false
				}
				lhs = append(lhs, v)
				rhs = append(rhs, w)
			}
		default:
			if !identical(a, b) {
				return false
			}
		}
	}
	return true
}

func sameRef(a, b interface{}) bool {
	ka, okA := containerKey(a)
	kb, okB := containerKey(b)
	return okA && okB && ka == kb
}

// identical compares opaque values by identity. Reference kinds match
// when they share storage. Other values match with ==, unless they hold
// something == cannot compare, such as a slice behind an interface field.
func identical(a, b interface{}) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr:
		return sameRef(a, b) || (reflect.ValueOf(a).IsNil() && reflect.ValueOf(b).IsNil())
	case reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}
