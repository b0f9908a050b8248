package document

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// refKey identifies a map or slice by its backing storage
type refKey struct {
	kind reflect.Kind
	ptr  uintptr
	n    int
}

// visited tracks the containers on the current traversal path
type visited map[refKey]struct{}

func containerKey(v interface{}) (refKey, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return refKey{}, false
		}
		return refKey{kind: reflect.Map, ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return refKey{}, false
		}
		return refKey{kind: reflect.Slice, ptr: rv.Pointer(), n: rv.Len()}, true
	case reflect.Ptr:
		if rv.IsNil() {
			return refKey{}, false
		}
		return refKey{kind: reflect.Ptr, ptr: rv.Pointer()}, true
	}
	return refKey{}, false
}

func (s visited) enter(v interface{}) (func(), error) {
	key, ok := containerKey(v)
	if !ok {
		return func() {}, nil
	}
	if _, seen := s[key]; seen {
		return nil, ErrCycleDetected
	}
	s[key] = struct{}{}
	return func() { delete(s, key) }, nil
}

// Stringify returns a deterministic encoding of v. Mapping keys are
// sorted so that structurally equal documents encode identically.
// Self-referencing values yield ErrCycleDetected.
func Stringify(v interface{}) (string, error) {
	var sb strings.Builder
	if err := stringify(&sb, v, visited{}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func stringify(sb *strings.Builder, v interface{}, refs visited) error {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
		return nil
	case undefined, missing:
		sb.WriteString("undefined")
		return nil
	case bool:
		sb.WriteString(strconv.FormatBool(val))
		return nil
	case string:
		sb.WriteString(strconv.Quote(val))
		return nil
	case time.Time:
		sb.WriteString("date(" + val.UTC().Format(time.RFC3339Nano) + ")")
		return nil
	case []byte:
		sb.WriteString("binary(" + base64.StdEncoding.EncodeToString(val) + ")")
		return nil
	case ObjectID:
		sb.WriteString(`ObjectID("` + val.Hex() + `")`)
		return nil
	}

	if IsNumber(v) {
		sb.WriteString(formatNumber(v))
		return nil
	}

	switch TypeOf(v) {
	case TypeDate:
		t, _ := toTime(v)
		sb.WriteString("date(" + t.UTC().Format(time.RFC3339Nano) + ")")
		return nil
	case TypeRegexp:
		sb.WriteString("/" + fmt.Sprint(v) + "/")
		return nil
	case TypeFunction:
		sb.WriteString(fmt.Sprintf("function(%#x)", reflect.ValueOf(v).Pointer()))
		return nil
	}

	leave, err := refs.enter(v)
	if err != nil {
		return err
	}
	defer leave()

	switch val := v.(type) {
	case []interface{}:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := stringify(sb, item, refs); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
		return nil
	case map[string]interface{}:
		return stringifyMembers(sb, val, refs)
	case D:
		// key order is significant
		sb.WriteString("D{")
		for i, e := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(e.Key))
			sb.WriteByte(':')
			if err := stringify(sb, e.Value, refs); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		return nil
	case Encodable:
		sb.WriteString(val.TypeName())
		return stringifyMembers(sb, val.Members(), refs)
	}

	// opaque values are identified by type and identity
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		sb.WriteString(fmt.Sprintf("%T(%#x)", v, rv.Pointer()))
		return nil
	}
	sb.WriteString(fmt.Sprintf("%T(%v)", v, v))
	return nil
}

func stringifyMembers(sb *strings.Builder, m map[string]interface{}, refs visited) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(k))
		sb.WriteByte(':')
		if err := stringify(sb, m[k], refs); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

// formatNumber renders integral values without a fraction so that 1 and
// 1.0 encode (and therefore hash) identically.
func formatNumber(v interface{}) string {
	if isIntKind(v) {
		if u, ok := v.(uint64); ok {
			return strconv.FormatUint(u, 10)
		}
		if u, ok := v.(uint); ok {
			return strconv.FormatUint(uint64(u), 10)
		}
		i, _ := ToInt64(v)
		return strconv.FormatInt(i, 10)
	}
	f, _ := ToFloat64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 9e18:
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
