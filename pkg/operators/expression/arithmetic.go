package expression

import (
	"fmt"
	"math"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var arithmeticOperators = map[string]core.ExpressionFunc{
	"$abs":      unaryMath("$abs", math.Abs, true),
	"$add":      add,
	"$ceil":     unaryMath("$ceil", math.Ceil, true),
	"$divide":   divide,
	"$exp":      unaryMath("$exp", math.Exp, false),
	"$floor":    unaryMath("$floor", math.Floor, true),
	"$ln":       unaryMath("$ln", math.Log, false),
	"$log":      logBase,
	"$log10":    unaryMath("$log10", math.Log10, false),
	"$mod":      mod,
	"$multiply": multiply,
	"$pow":      pow,
	"$round":    rounding("$round", math.RoundToEven),
	"$sqrt":     unaryMath("$sqrt", math.Sqrt, false),
	"$subtract": subtract,
	"$trunc":    rounding("$trunc", math.Trunc),
}

func toNumber(op string, v interface{}) (float64, error) {
	f, ok := document.ToFloat64(v)
	if !ok {
		return 0, fmt.Errorf("%w: %s only supports numeric types, got %T", core.ErrInvalidArgument, op, v)
	}
	return f, nil
}

// result keeps integer results integral when every input was an integer
func result(f float64, ints bool) interface{} {
	return document.NormalizeNumber(f, ints)
}

func allIntegers(vals ...interface{}) bool {
	for _, v := range vals {
		switch v.(type) {
		case float32, float64:
			return false
		}
	}
	return true
}

func unaryMath(op string, fn func(float64) float64, keepInt bool) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsN(op, 1, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		if document.IsNil(vals[0]) {
			return nil, nil
		}
		f, err := toNumber(op, vals[0])
		if err != nil {
			return nil, err
		}
		return result(fn(f), keepInt && allIntegers(vals[0])), nil
	}
}

func add(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	var total float64
	var date *time.Time
	ints := true
	for _, v := range vals {
		if document.IsNil(v) {
			return nil, nil
		}
		if t, ok := document.ToTime(v); ok {
			if date != nil {
				return nil, fmt.Errorf("%w: $add only supports one date", core.ErrInvalidArgument)
			}
			date = &t
			continue
		}
		f, err := toNumber("$add", v)
		if err != nil {
			return nil, err
		}
		ints = ints && allIntegers(v)
		total += f
	}
	if date != nil {
		return date.Add(time.Duration(total) * time.Millisecond), nil
	}
	return result(total, ints), nil
}

func multiply(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := args(obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	product := 1.0
	for _, v := range vals {
		if document.IsNil(v) {
			return nil, nil
		}
		f, err := toNumber("$multiply", v)
		if err != nil {
			return nil, err
		}
		product *= f
	}
	return result(product, allIntegers(vals...)), nil
}

func subtract(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$subtract", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if anyNil(vals...) {
		return nil, nil
	}
	a, b := vals[0], vals[1]
	at, aDate := document.ToTime(a)
	bt, bDate := document.ToTime(b)
	switch {
	case aDate && bDate:
		return at.Sub(bt).Milliseconds(), nil
	case aDate:
		f, err := toNumber("$subtract", b)
		if err != nil {
			return nil, err
		}
		return at.Add(-time.Duration(f) * time.Millisecond), nil
	case bDate:
		return nil, fmt.Errorf("%w: $subtract cannot subtract a date from a number", core.ErrInvalidArgument)
	}
	af, err := toNumber("$subtract", a)
	if err != nil {
		return nil, err
	}
	bf, err := toNumber("$subtract", b)
	if err != nil {
		return nil, err
	}
	return result(af-bf, allIntegers(a, b)), nil
}

func divide(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$divide", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if anyNil(vals...) {
		return nil, nil
	}
	a, err := toNumber("$divide", vals[0])
	if err != nil {
		return nil, err
	}
	b, err := toNumber("$divide", vals[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("%w: $divide by zero", core.ErrInvalidArgument)
	}
	return a / b, nil
}

func mod(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$mod", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if anyNil(vals...) {
		return nil, nil
	}
	a, err := toNumber("$mod", vals[0])
	if err != nil {
		return nil, err
	}
	b, err := toNumber("$mod", vals[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("%w: $mod by zero", core.ErrInvalidArgument)
	}
	return result(math.Mod(a, b), allIntegers(vals...)), nil
}

func pow(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$pow", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if anyNil(vals...) {
		return nil, nil
	}
	base, err := toNumber("$pow", vals[0])
	if err != nil {
		return nil, err
	}
	exp, err := toNumber("$pow", vals[1])
	if err != nil {
		return nil, err
	}
	if base == 0 && exp < 0 {
		return nil, fmt.Errorf("%w: $pow cannot raise 0 to a negative exponent", core.ErrInvalidArgument)
	}
	return result(math.Pow(base, exp), allIntegers(vals...) && exp >= 0), nil
}

func logBase(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	vals, err := argsN("$log", 2, obj, expr, ctx)
	if err != nil {
		return nil, err
	}
	if anyNil(vals...) {
		return nil, nil
	}
	n, err := toNumber("$log", vals[0])
	if err != nil {
		return nil, err
	}
	base, err := toNumber("$log", vals[1])
	if err != nil {
		return nil, err
	}
	return math.Log(n) / math.Log(base), nil
}

// rounding rounds to a number of decimal places, given as an optional
// second argument
func rounding(op string, fn func(float64) float64) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		vals, err := argsRange(op, 1, 2, obj, expr, ctx)
		if err != nil {
			return nil, err
		}
		if document.IsNil(vals[0]) {
			return nil, nil
		}
		n, err := toNumber(op, vals[0])
		if err != nil {
			return nil, err
		}
		var place int64
		if len(vals) == 2 {
			p, ok := document.ToInt64(vals[1])
			if !ok || p < -20 || p > 100 {
				return nil, fmt.Errorf("%w: %s place must be an integer in [-20, 100]", core.ErrInvalidArgument, op)
			}
			place = p
		}
		scale := math.Pow(10, float64(place))
		rounded := fn(n*scale) / scale
		return result(rounded, allIntegers(vals[0])), nil
	}
}
