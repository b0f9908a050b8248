package expression

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var arrayOperators = map[string]core.ExpressionFunc{
	"$arrayElemAt":   arrayElemAt,
	"$arrayToObject": arrayToObject,
	"$concatArrays":  concatArrays,
	"$filter":        filter,
	"$first":         firstOrLast(true),
	"$in":            in,
	"$indexOfArray":  indexOfArray,
	"$isArray":       isArray,
	"$last":          firstOrLast(false),
	"$map":           mapArray,
	"$objectToArray": objectToArray,
	"$range":         rangeArray,
	"$reduce":        reduce,
	"$reverseArray":  reverseArray,
	"$size":          size,
	"$slice":         slice,
	"$zip":           zip,
}

func toArray(op string, v interface{}) ([]interface{}, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s needs an array, got %T", core.ErrInvalidArgument, op, v)
	}
	return arr, nil
}

func toInt(op string, v interface{}) (int, error) {
	n, ok := document.ToInt64(v)
	if !ok || !document.IsInteger(v) {
		return 0, fmt.Errorf("%w: %s needs an integer, got %v", core.ErrInvalidArgument, op, v)
	}
	return int(n), nil
}

func arrayElemAt(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$arrayElemAt", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if anyNil(vals...) {
		return nil, nil
	}
	arr, err := toArray("$arrayElemAt", vals[0])
	if err != nil {
		return nil, err
	}
	i, err := toInt("$arrayElemAt", vals[1])
	if err != nil {
		return nil, err
	}
	if i < 0 {
		i += len(arr)
	}
	if i < 0 || i >= len(arr) {
		return document.Undefined, nil
	}
	return arr[i], nil
}

func arrayToObject(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$arrayToObject", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	arr, err := toArray("$arrayToObject", vals[0])
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(arr))
	for _, item := range arr {
		switch pair := item.(type) {
		case []interface{}:
			if len(pair) != 2 {
				return nil, fmt.Errorf("%w: $arrayToObject pairs must be [string, value]", core.ErrInvalidArgument)
			}
			k, ok := pair[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: $arrayToObject pairs must be [string, value]", core.ErrInvalidArgument)
			}
			out[k] = pair[1]
		case map[string]interface{}:
			k, ok := pair["k"].(string)
			v, hasV := pair["v"]
			if !ok || !hasV || len(pair) != 2 {
				return nil, fmt.Errorf("%w: $arrayToObject entries must be {k, v}", core.ErrInvalidArgument)
			}
			out[k] = v
		default:
			return nil, fmt.Errorf("%w: $arrayToObject entries must be pairs or {k, v}", core.ErrInvalidArgument)
		}
	}
	return out, nil
}

func concatArrays(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, 0)
	for _, v := range vals {
		if document.IsNil(v) {
			return nil, nil
		}
		arr, err := toArray("$concatArrays", v)
		if err != nil {
			return nil, err
		}
		out = append(out, arr...)
	}
	return out, nil
}

// scoped evaluates in with the variable named by as bound to value
func scoped(obj, in interface{}, as string, value interface{}, ctx *core.Context) (interface{}, error) {
	return compute(obj, in, ctx.WithLocal(map[string]interface{}{as: value}))
}

func asName(m map[string]interface{}) string {
	if as, ok := m["as"].(string); ok && as != "" {
		return as
	}
	return "this"
}

func filter(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$filter", expr, "input", "cond")
	if err != nil {
		return nil, err
	}
	input, err := compute(obj, m["input"], ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(input) {
		return nil, nil
	}
	arr, err := toArray("$filter", input)
	if err != nil {
		return nil, err
	}
	limit := len(arr)
	if l, ok := m["limit"]; ok {
		v, err := compute(obj, l, ctx)
		if err != nil {
			return nil, err
		}
		if !document.IsNil(v) {
			if limit, err = toInt("$filter", v); err != nil || limit < 1 {
				return nil, fmt.Errorf("%w: $filter limit must be a positive integer", core.ErrInvalidArgument)
			}
		}
	}

	as := asName(m)
	out := make([]interface{}, 0)
	for _, item := range arr {
		if len(out) >= limit {
			break
		}
		keep, err := scoped(obj, m["cond"], as, item, ctx)
		if err != nil {
			return nil, err
		}
		if truthy(keep, ctx) {
			out = append(out, item)
		}
	}
	return out, nil
}

func firstOrLast(first bool) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		v, err := compute(obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		if document.IsNil(v) {
			return nil, nil
		}
		arr, err := toArray("$first/$last", v)
		if err != nil {
			return nil, err
		}
		if len(arr) == 0 {
			return document.Undefined, nil
		}
		if first {
			return arr[0], nil
		}
		return arr[len(arr)-1], nil
	}
}

func in(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$in", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	arr, err := toArray("$in", vals[1])
	if err != nil {
		return nil, err
	}
	return document.Contains(arr, vals[0]), nil
}

func indexOfArray(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsRange("$indexOfArray", 2, 4, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	arr, err := toArray("$indexOfArray", vals[0])
	if err != nil {
		return nil, err
	}
	start, end := 0, len(arr)
	if len(vals) > 2 {
		if start, err = index("$indexOfArray", vals[2]); err != nil {
			return nil, err
		}
	}
	if len(vals) > 3 {
		if end, err = index("$indexOfArray", vals[3]); err != nil {
			return nil, err
		}
	}
	if end > len(arr) {
		end = len(arr)
	}
	for i := start; i < end; i++ {
		if document.Equal(arr[i], vals[1]) {
			return int64(i), nil
		}
	}
	return int64(-1), nil
}

func isArray(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$isArray", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	return document.IsArray(vals[0]), nil
}

func mapArray(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$map", expr, "input", "in")
	if err != nil {
		return nil, err
	}
	input, err := compute(obj, m["input"], ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(input) {
		return nil, nil
	}
	arr, err := toArray("$map", input)
	if err != nil {
		return nil, err
	}
	as := asName(m)
	out := make([]interface{}, len(arr))
	for i, item := range arr {
		if out[i], err = scoped(obj, m["in"], as, item, ctx); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func objectToArray(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$objectToArray", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	entries, ok := document.Ordered(vals[0])
	if !ok {
		return nil, fmt.Errorf("%w: $objectToArray needs a document, got %T", core.ErrInvalidArgument, vals[0])
	}
	out := make([]interface{}, len(entries))
	for i, e := range entries {
		out[i] = map[string]interface{}{"k": e.Key, "v": e.Value}
	}
	return out, nil
}

func rangeArray(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsRange("$range", 2, 3, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	start, err := toInt("$range", vals[0])
	if err != nil {
		return nil, err
	}
	end, err := toInt("$range", vals[1])
	if err != nil {
		return nil, err
	}
	step := 1
	if len(vals) == 3 {
		if step, err = toInt("$range", vals[2]); err != nil {
			return nil, err
		}
	}
	if step == 0 {
		return nil, fmt.Errorf("%w: $range step must not be 0", core.ErrInvalidArgument)
	}
	out := make([]interface{}, 0)
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		out = append(out, int64(i))
	}
	return out, nil
}

// reduce folds input with $$value holding the accumulated value and
// $$this the current element
func reduce(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$reduce", expr, "input", "initialValue", "in")
	if err != nil {
		return nil, err
	}
	input, err := compute(obj, m["input"], ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(input) {
		return nil, nil
	}
	arr, err := toArray("$reduce", input)
	if err != nil {
		return nil, err
	}
	acc, err := compute(obj, m["initialValue"], ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range arr {
		vars := map[string]interface{}{"value": acc, "this": item}
		if acc, err = compute(obj, m["in"], ctx.WithLocal(vars)); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func reverseArray(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$reverseArray", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	arr, err := toArray("$reverseArray", vals[0])
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(arr))
	for i, v := range arr {
		out[len(arr)-1-i] = v
	}
	return out, nil
}

func size(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$size", 1, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	arr, err := toArray("$size", vals[0])
	if err != nil {
		return nil, err
	}
	return int64(len(arr)), nil
}

// Slice returns the elements of arr selected by [n] or [position, n]. A
// negative n takes from the end, a negative position counts from the end.
func Slice(arr []interface{}, params ...int) ([]interface{}, error) {
	var start, n int
	switch len(params) {
	case 1:
		n = params[0]
		if n < 0 {
			start = len(arr) + n
			n = -n
		}
	case 2:
		start, n = params[0], params[1]
		if n <= 0 {
			return nil, fmt.Errorf("%w: $slice count must be positive", core.ErrInvalidArgument)
		}
		if start < 0 {
			start += len(arr)
		}
	default:
		return nil, fmt.Errorf("%w: $slice takes 1 or 2 parameters", core.ErrInvalidArgument)
	}
	if start < 0 {
		start = 0
	}
	if start > len(arr) {
		start = len(arr)
	}
	end := start + n
	if end > len(arr) {
		end = len(arr)
	}
	out := make([]interface{}, end-start)
	copy(out, arr[start:end])
	return out, nil
}

func slice(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsRange("$slice", 2, 3, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if document.IsNil(vals[0]) {
		return nil, nil
	}
	arr, err := toArray("$slice", vals[0])
	if err != nil {
		return nil, err
	}
	params := make([]int, 0, 2)
	for _, v := range vals[1:] {
		p, err := toInt("$slice", v)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return Slice(arr, params...)
}

func zip(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$zip", expr, "inputs")
	if err != nil {
		return nil, err
	}
	v, err := compute(obj, m["inputs"], ctx)
	if err != nil {
		return nil, err
	}
	inputs, err := toArray("$zip", v)
	if err != nil {
		return nil, err
	}
	longest, _ := m["useLongestLength"].(bool)

	var defaults []interface{}
	if d, ok := m["defaults"]; ok {
		if !longest {
			return nil, fmt.Errorf("%w: $zip defaults need useLongestLength", core.ErrInvalidArgument)
		}
		dv, err := compute(obj, d, ctx)
		if err != nil {
			return nil, err
		}
		if defaults, err = toArray("$zip", dv); err != nil {
			return nil, err
		}
		if len(defaults) != len(inputs) {
			return nil, fmt.Errorf("%w: $zip defaults must match inputs", core.ErrInvalidArgument)
		}
	}

	arrays := make([][]interface{}, len(inputs))
	n := -1
	for i, in := range inputs {
		if document.IsNil(in) {
			return nil, nil
		}
		if arrays[i], err = toArray("$zip", in); err != nil {
			return nil, err
		}
		l := len(arrays[i])
		if n < 0 || (longest && l > n) || (!longest && l < n) {
			n = l
		}
	}
	if n < 0 {
		n = 0
	}

	out := make([]interface{}, n)
	for i := 0; i < n; i++ {
		row := make([]interface{}, len(arrays))
		for j, arr := range arrays {
			switch {
			case i < len(arr):
				row[j] = arr[i]
			case defaults != nil:
				row[j] = defaults[j]
			}
		}
		out[i] = row
	}
	return out, nil
}
