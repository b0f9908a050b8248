package document

import (
	"bytes"
	"regexp"
	"strings"
)

// Compare orders two values. Values of different types are ordered by
// type rank:
//
//	null/undefined < number < string < object < array < binary <
//	objectid < boolean < date < regexp < function
//
// Numbers, strings and dates use their natural order. For other types
// equal values compare as 0, booleans order false before true, arrays
// compare element-wise and regexps by their source. Anything else is
// incomparable and compares as 0.
func Compare(a, b interface{}) int {
	ta, tb := TypeOf(a), TypeOf(b)
	if ra, rb := ta.rank(), tb.rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ta {
	case TypeNumber:
		return compareNumbers(a, b)
	case TypeString:
		return strings.Compare(a.(string), b.(string))
	case TypeDate:
		x, _ := toTime(a)
		y, _ := toTime(b)
		return x.Compare(y)
	}

	if Equal(a, b) {
		return 0
	}

	switch ta {
	case TypeBoolean:
		if !a.(bool) {
			return -1
		}
		return 1
	case TypeArray:
		x, y := a.([]interface{}), b.([]interface{})
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := Compare(x[i], y[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(x) < len(y):
			return -1
		case len(x) > len(y):
			return 1
		}
	case TypeBinary:
		return bytes.Compare(a.([]byte), b.([]byte))
	case TypeObjectID:
		return a.(ObjectID).Compare(b.(ObjectID))
	case TypeRegexp:
		return strings.Compare(a.(*regexp.Regexp).String(), b.(*regexp.Regexp).String())
	}
	return 0
}

// Comparator orders two values
type Comparator func(a, b interface{}) int
