// Package accumulator implements the accumulator operators that reduce a
// group of documents to a single value, as used by $group and by
// expressions applied to arrays.
package accumulator

import (
	"math"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators/expression"
)

// Operators returns the built-in accumulators by name
func Operators() map[string]core.AccumulatorFunc {
	return map[string]core.AccumulatorFunc{
		"$addToSet":     AddToSet,
		"$avg":          Avg,
		"$count":        Count,
		"$first":        First,
		"$last":         Last,
		"$max":          extreme(1),
		"$mergeObjects": MergeObjects,
		"$min":          extreme(-1),
		"$push":         Push,
		"$stdDevPop":    stdDev(false),
		"$stdDevSamp":   stdDev(true),
		"$sum":          Sum,
	}
}

// Register adds the built-in accumulators to r
func Register(r *core.Registry) error {
	for name, fn := range Operators() {
		if err := r.Register(core.ClassAccumulator, name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Push evaluates expr for every element. A nil expr returns the elements
// themselves. Missing values are left out.
func Push(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	if expr == nil {
		return coll, nil
	}
	out := make([]interface{}, 0, len(coll))
	for _, obj := range coll {
		v, err := core.ComputeValue(obj, expr, "", ctx.WithRoot(obj))
		if err != nil {
			return nil, err
		}
		if !document.IsUndefined(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func values(coll []interface{}, expr interface{}, ctx *core.Context) ([]interface{}, error) {
	v, err := Push(coll, expr, ctx)
	if err != nil {
		return nil, err
	}
	return v.([]interface{}), nil
}

// AddToSet returns the distinct values of expr
func AddToSet(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := values(coll, expr, ctx)
	if err != nil {
		return nil, err
	}
	return document.Unique(vals, ctx.Options().HashFunction)
}

// Sum adds the numeric values of expr. A numeric literal counts every
// element that many times.
func Sum(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	if document.IsNumber(expr) {
		f, _ := document.ToFloat64(expr)
		return document.NormalizeNumber(f*float64(len(coll)), document.IsInteger(expr)), nil
	}
	vals, err := values(coll, expr, ctx)
	if err != nil {
		return nil, err
	}
	var total float64
	ints := true
	for _, v := range vals {
		f, ok := document.ToFloat64(v)
		if !ok {
			continue
		}
		switch v.(type) {
		case float32, float64:
			ints = false
		}
		total += f
	}
	return document.NormalizeNumber(total, ints), nil
}

func numbers(coll []interface{}, expr interface{}, ctx *core.Context) ([]float64, error) {
	vals, err := values(coll, expr, ctx)
	if err != nil {
		return nil, err
	}
	nums := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := document.ToFloat64(v); ok {
			nums = append(nums, f)
		}
	}
	return nums, nil
}

// Avg returns the mean of the numeric values, or null when there are none
func Avg(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	nums, err := numbers(coll, expr, ctx)
	if err != nil || len(nums) == 0 {
		return nil, err
	}
	var total float64
	for _, n := range nums {
		total += n
	}
	return total / float64(len(nums)), nil
}

// Count returns the number of elements
func Count(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	return int64(len(coll)), nil
}

// First evaluates expr for the first element
func First(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	if len(coll) == 0 {
		return nil, nil
	}
	return at(coll[0], expr, ctx)
}

// Last evaluates expr for the last element
func Last(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	if len(coll) == 0 {
		return nil, nil
	}
	return at(coll[len(coll)-1], expr, ctx)
}

func at(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	if expr == nil {
		return obj, nil
	}
	v, err := core.ComputeValue(obj, expr, "", ctx.WithRoot(obj))
	if err != nil {
		return nil, err
	}
	if document.IsUndefined(v) {
		return nil, nil
	}
	return v, nil
}

// extreme returns the largest (sign 1) or smallest (sign -1) non-null value
func extreme(sign int) core.AccumulatorFunc {
	return func(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := values(coll, expr, ctx)
		if err != nil {
			return nil, err
		}
		var best interface{}
		found := false
		for _, v := range vals {
			if document.IsNil(v) {
				continue
			}
			if !found || document.Compare(v, best)*sign > 0 {
				best, found = v, true
			}
		}
		return best, nil
	}
}

// MergeObjects merges the documents produced by expr
func MergeObjects(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := values(coll, expr, ctx)
	if err != nil {
		return nil, err
	}
	return expression.MergeObjects(vals)
}

func stdDev(sample bool) core.AccumulatorFunc {
	return func(coll []interface{}, expr interface{}, ctx *core.Context) (interface{}, error) {
		nums, err := numbers(coll, expr, ctx)
		if err != nil {
			return nil, err
		}
		n := len(nums)
		if n == 0 || (sample && n < 2) {
			return nil, nil
		}
		var mean float64
		for _, x := range nums {
			mean += x
		}
		mean /= float64(n)
		var sq float64
		for _, x := range nums {
			sq += (x - mean) * (x - mean)
		}
		div := float64(n)
		if sample {
			div--
		}
		return math.Sqrt(sq / div), nil
	}
}
