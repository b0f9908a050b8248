package queryop

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

func compileExists(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	want := document.Truthy(value, false)
	return func(lhs interface{}) (bool, error) {
		return want == !document.IsUndefined(lhs), nil
	}, nil
}

// typeCheck reports whether v is of a named or numbered BSON type
type typeCheck func(v interface{}) bool

func isNull(v interface{}) bool { return v == nil }

var typeChecks = map[string]typeCheck{
	"array":     document.IsArray,
	"bool":      document.IsBoolean,
	"boolean":   document.IsBoolean,
	"date":      document.IsDate,
	"decimal":   document.IsNumber,
	"double":    document.IsNumber,
	"int":       document.IsInteger,
	"long":      document.IsInteger,
	"number":    document.IsNumber,
	"null":      isNull,
	"object":    document.IsObject,
	"objectId":  func(v interface{}) bool { return document.TypeOf(v) == document.TypeObjectID },
	"binData":   func(v interface{}) bool { return document.TypeOf(v) == document.TypeBinary },
	"regex":     document.IsRegexp,
	"regexp":    document.IsRegexp,
	"string":    document.IsString,
	"undefined": document.IsNil,
	"function":  document.IsFunction,
}

var typeCodes = map[int64]string{
	1:  "double",
	2:  "string",
	3:  "object",
	4:  "array",
	5:  "binData",
	6:  "undefined",
	7:  "objectId",
	8:  "bool",
	9:  "date",
	10: "null",
	11: "regex",
	13: "function",
	16: "int",
	18: "long",
	19: "decimal",
}

func lookupType(t interface{}) (typeCheck, error) {
	name, ok := t.(string)
	if !ok {
		code, isNum := document.ToInt64(t)
		if !isNum {
			return nil, fmt.Errorf("%w: $type needs a type name or number, got %T", core.ErrInvalidArgument, t)
		}
		if name, ok = typeCodes[code]; !ok {
			return nil, fmt.Errorf("%w: unknown $type code %d", core.ErrInvalidArgument, code)
		}
	}
	check, ok := typeChecks[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown $type %q", core.ErrInvalidArgument, name)
	}
	return check, nil
}

// compileType matches values of any of the given types. Array fields
// match when the array or one of its elements has the type.
func compileType(value interface{}, depth int, ctx *core.Context) (matcher, error) {
	var checks []typeCheck
	for _, t := range document.EnsureArray(value) {
		check, err := lookupType(t)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}

	return func(lhs interface{}) (bool, error) {
		candidates := []interface{}{lhs}
		if arr, ok := lhs.([]interface{}); ok {
			candidates = append(candidates, arr...)
		}
		for _, check := range checks {
			for _, c := range candidates {
				if check(c) {
					return true, nil
				}
			}
		}
		return false, nil
	}, nil
}
