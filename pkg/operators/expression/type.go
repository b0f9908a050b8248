package expression

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var typeOperators = map[string]core.ExpressionFunc{
	"$convert":  convertExpr,
	"$isNumber": isNumber,
	"$toBool":   convertTo("bool"),
	"$toDate":   convertTo("date"),
	"$toDouble": convertTo("double"),
	"$toInt":    convertTo("int"),
	"$toLong":   convertTo("long"),
	"$toString": convertTo("string"),
	"$type":     typeName,
}

// TypeName returns the BSON type name of v
func TypeName(v interface{}) string {
	if document.IsUndefined(v) {
		return "missing"
	}
	switch x := v.(type) {
	case float32, float64:
		return "double"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, _ := document.ToInt64(x)
		if n < math.MinInt32 || n > math.MaxInt32 {
			return "long"
		}
		return "int"
	}
	switch document.TypeOf(v) {
	case document.TypeNull:
		return "null"
	case document.TypeString:
		return "string"
	case document.TypeObject:
		return "object"
	case document.TypeArray:
		return "array"
	case document.TypeBinary:
		return "binData"
	case document.TypeObjectID:
		return "objectId"
	case document.TypeBoolean:
		return "bool"
	case document.TypeDate:
		return "date"
	case document.TypeRegexp:
		return "regex"
	case document.TypeFunction:
		return "javascript"
	}
	return "object"
}

func typeName(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$type", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	return TypeName(vals[0]), nil
}

func isNumber(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$isNumber", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	return document.IsNumber(vals[0]), nil
}

func convertTo(target string) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsN("$to"+target, 1, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		if document.IsNil(vals[0]) {
			return nil, nil
		}
		return Convert(vals[0], target)
	}
}

// convertExpr implements {$convert: {input, to, onError, onNull}}
func convertExpr(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$convert", expr, "input", "to")
	if err != nil {
		return nil, err
	}
	input, err := compute(obj, m["input"], ctx)
	if err != nil {
		return nil, err
	}
	to, err := compute(obj, m["to"], ctx)
	if err != nil {
		return nil, err
	}

	if document.IsNil(input) {
		if onNull, ok := m["onNull"]; ok {
			return compute(obj, onNull, ctx)
		}
		return nil, nil
	}

	target, ok := to.(string)
	if !ok {
		code, isNum := document.ToInt64(to)
		if !isNum {
			return nil, fmt.Errorf("%w: $convert to must be a type name or code", core.ErrInvalidArgument)
		}
		target = map[int64]string{1: "double", 2: "string", 8: "bool", 9: "date", 16: "int", 18: "long", 19: "decimal"}[code]
	}

	out, err := Convert(input, target)
	if err != nil {
		if onError, ok := m["onError"]; ok {
			return compute(obj, onError, ctx)
		}
		return nil, err
	}
	return out, nil
}

// Convert converts v to the named BSON type
func Convert(v interface{}, target string) (interface{}, error) {
	fail := func() (interface{}, error) {
		return nil, fmt.Errorf("%w: cannot convert %v (%s) to %s", core.ErrInvalidArgument, v, TypeName(v), target)
	}

	switch target {
	case "bool":
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return true, nil
		}
		if f, ok := document.ToFloat64(v); ok {
			return f != 0, nil
		}
		if document.IsDate(v) {
			return true, nil
		}
		return fail()

	case "double", "decimal":
		switch x := v.(type) {
		case bool:
			if x {
				return 1.0, nil
			}
			return 0.0, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return fail()
			}
			return f, nil
		}
		if t, ok := document.ToTime(v); ok {
			return float64(t.UnixMilli()), nil
		}
		if f, ok := document.ToFloat64(v); ok {
			return f, nil
		}
		return fail()

	case "int", "long":
		var n int64
		switch x := v.(type) {
		case bool:
			if x {
				n = 1
			}
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
			if err != nil {
				return fail()
			}
			n = parsed
		default:
			if t, ok := document.ToTime(v); ok {
				n = t.UnixMilli()
				break
			}
			i, ok := document.ToInt64(v)
			if !ok {
				return fail()
			}
			n = i
		}
		if target == "int" && (n < math.MinInt32 || n > math.MaxInt32) {
			return fail()
		}
		return n, nil

	case "string":
		switch x := v.(type) {
		case string:
			return x, nil
		case bool:
			return strconv.FormatBool(x), nil
		case document.ObjectID:
			return x.Hex(), nil
		case []byte:
			return base64.StdEncoding.EncodeToString(x), nil
		}
		if t, ok := document.ToTime(v); ok {
			return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
		}
		if document.IsNumber(v) {
			if document.IsInteger(v) {
				n, _ := document.ToInt64(v)
				return strconv.FormatInt(n, 10), nil
			}
			f, _ := document.ToFloat64(v)
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		}
		return fail()

	case "date":
		if t, ok := document.ToTime(v); ok {
			return t, nil
		}
		switch x := v.(type) {
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, x); err == nil {
					return t, nil
				}
			}
			return fail()
		case document.ObjectID:
			return x.Timestamp(), nil
		}
		if document.IsNumber(v) {
			ms, _ := document.ToInt64(v)
			return time.UnixMilli(ms).UTC(), nil
		}
		return fail()

	case "objectId":
		if id, ok := v.(document.ObjectID); ok {
			return id, nil
		}
		if s, ok := v.(string); ok {
			id, err := document.ObjectIDFromHex(s)
			if err != nil {
				return fail()
			}
			return id, nil
		}
		return fail()
	}
	return nil, fmt.Errorf("%w: unknown conversion target %q", core.ErrInvalidArgument, target)
}
