package expression_test

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/operators/expression"
)

func TestMain(m *testing.M) {
	if _, err := operators.Default(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type obj = map[string]interface{}
type arr = []interface{}

var sample = obj{
	"name": "Ada",
	"age":  36,
	"tags": arr{"math", "code"},
	"nums": arr{1, 5, 9},
	"when": time.Date(2024, time.March, 5, 14, 30, 15, 250*int(time.Millisecond), time.UTC),
	"addr": obj{"city": "London"},
}

func eval(t *testing.T, expr interface{}) interface{} {
	t.Helper()
	v, err := core.ComputeValue(sample, expr, "", core.NewContext(nil))
	if err != nil {
		t.Fatalf("ComputeValue(%v) failed: %v", expr, err)
	}
	return v
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		expr interface{}
		want interface{}
	}{
		// arithmetic
		{"add ints", obj{"$add": arr{"$age", 4}}, 40},
		{"add float", obj{"$add": arr{1, 0.5}}, 1.5},
		{"add date", obj{"$add": arr{"$when", 1000}}, time.Date(2024, time.March, 5, 14, 30, 16, 250*int(time.Millisecond), time.UTC)},
		{"add null", obj{"$add": arr{1, nil}}, nil},
		{"subtract", obj{"$subtract": arr{10, 4}}, 6},
		{"multiply", obj{"$multiply": arr{"$age", 2}}, 72},
		{"divide", obj{"$divide": arr{10, 4}}, 2.5},
		{"mod", obj{"$mod": arr{10, 3}}, 1},
		{"abs", obj{"$abs": -3}, 3},
		{"floor", obj{"$floor": 2.7}, 2.0},
		{"round place", obj{"$round": arr{3.14159, 2}}, 3.14},
		{"trunc", obj{"$trunc": -2.7}, -2.0},
		{"sqrt", obj{"$sqrt": 16}, 4.0},

		// comparison and boolean
		{"cmp", obj{"$cmp": arr{"$age", 40}}, -1},
		{"eq", obj{"$eq": arr{"$addr", obj{"city": "London"}}}, true},
		{"ne", obj{"$ne": arr{"$name", "Ada"}}, false},
		{"gt across types", obj{"$gt": arr{"$name", 1}}, true},
		{"and", obj{"$and": arr{true, 1, "$name"}}, true},
		{"or", obj{"$or": arr{false, nil}}, false},
		{"not", obj{"$not": arr{false}}, true},

		// conditional
		{"cond array", obj{"$cond": arr{obj{"$gte": arr{"$age", 18}}, "adult", "minor"}}, "adult"},
		{"cond document", obj{"$cond": obj{"if": false, "then": 1, "else": 2}}, 2},
		{"ifNull", obj{"$ifNull": arr{"$missing", nil, "fallback"}}, "fallback"},
		{"switch", obj{"$switch": obj{
			"branches": arr{
				obj{"case": obj{"$lt": arr{"$age", 20}}, "then": "young"},
				obj{"case": obj{"$lt": arr{"$age", 40}}, "then": "middle"},
			},
			"default": "old",
		}}, "middle"},

		// strings
		{"concat", obj{"$concat": arr{"$name", "@", "$addr.city"}}, "Ada@London"},
		{"concat null", obj{"$concat": arr{"$name", "$missing"}}, nil},
		{"toUpper", obj{"$toUpper": "$name"}, "ADA"},
		{"substrCP", obj{"$substrCP": arr{"hello", 1, 3}}, "ell"},
		{"strLenCP", obj{"$strLenCP": "héllo"}, 5},
		{"split", obj{"$split": arr{"a,b,c", ","}}, arr{"a", "b", "c"}},
		{"trim", obj{"$trim": obj{"input": "  x  "}}, "x"},
		{"strcasecmp", obj{"$strcasecmp": arr{"abc", "ABC"}}, 0},
		{"regexMatch", obj{"$regexMatch": obj{"input": "$name", "regex": "^a", "options": "i"}}, true},

		// arrays
		{"size", obj{"$size": "$tags"}, 2},
		{"arrayElemAt", obj{"$arrayElemAt": arr{"$nums", -1}}, 9},
		{"slice", obj{"$slice": arr{"$nums", 1, 2}}, arr{5, 9}},
		{"slice from end", obj{"$slice": arr{"$nums", -2}}, arr{5, 9}},
		{"in", obj{"$in": arr{5, "$nums"}}, true},
		{"concatArrays", obj{"$concatArrays": arr{"$tags", arr{"x"}}}, arr{"math", "code", "x"}},
		{"reverseArray", obj{"$reverseArray": "$nums"}, arr{9, 5, 1}},
		{"range", obj{"$range": arr{0, 5, 2}}, arr{0, 2, 4}},
		{"filter", obj{"$filter": obj{"input": "$nums", "cond": obj{"$gt": arr{"$$this", 2}}}}, arr{5, 9}},
		{"filter limit", obj{"$filter": obj{"input": "$nums", "as": "n", "cond": true, "limit": 1}}, arr{1}},
		{"map", obj{"$map": obj{"input": "$nums", "as": "n", "in": obj{"$multiply": arr{"$$n", 10}}}}, arr{10, 50, 90}},
		{"reduce", obj{"$reduce": obj{
			"input":        "$nums",
			"initialValue": 0,
			"in":           obj{"$add": arr{"$$value", "$$this"}},
		}}, 15},
		{"objectToArray", obj{"$objectToArray": "$addr"}, arr{obj{"k": "city", "v": "London"}}},
		{"arrayToObject", obj{"$arrayToObject": arr{arr{arr{"a", 1}, arr{"b", 2}}}}, obj{"a": 1, "b": 2}},

		// sets
		{"setUnion", obj{"$setUnion": arr{arr{1, 2}, arr{2, 3}}}, arr{1, 2, 3}},
		{"setIntersection", obj{"$setIntersection": arr{arr{1, 2, 3}, arr{3, 2}}}, arr{2, 3}},
		{"setDifference", obj{"$setDifference": arr{arr{1, 2, 3}, arr{2}}}, arr{1, 3}},
		{"setEquals", obj{"$setEquals": arr{arr{1, 2}, arr{2, 1, 1}}}, true},
		{"setIsSubset", obj{"$setIsSubset": arr{arr{1}, arr{1, 2}}}, true},
		{"allElementsTrue", obj{"$allElementsTrue": arr{arr{1, true, "x"}}}, true},
		{"anyElementTrue", obj{"$anyElementTrue": arr{arr{0, false}}}, false},

		// types
		{"type string", obj{"$type": "$name"}, "string"},
		{"type missing", obj{"$type": "$missing"}, "missing"},
		{"type int", obj{"$type": "$age"}, "int"},
		{"isNumber", obj{"$isNumber": "$age"}, true},
		{"convert onError", obj{"$convert": obj{"input": "abc", "to": "int", "onError": -1}}, -1},
		{"convert onNull", obj{"$convert": obj{"input": "$missing", "to": "int", "onNull": 0}}, 0},

		// dates
		{"year", obj{"$year": "$when"}, 2024},
		{"month", obj{"$month": "$when"}, 3},
		{"dayOfMonth", obj{"$dayOfMonth": "$when"}, 5},
		{"hour in timezone", obj{"$hour": obj{"date": "$when", "timezone": "+02:00"}}, 16},
		{"millisecond", obj{"$millisecond": "$when"}, 250},
		{"dateToString", obj{"$dateToString": obj{"format": "%Y-%m-%d %H:%M", "date": "$when"}}, "2024-03-05 14:30"},
		{"dateToString onNull", obj{"$dateToString": obj{"date": "$missing", "onNull": "none"}}, "none"},

		// objects and variables
		{"mergeObjects", obj{"$mergeObjects": arr{"$addr", obj{"zip": "N1"}}}, obj{"city": "London", "zip": "N1"}},
		{"getField", obj{"$getField": "name"}, "Ada"},
		{"let", obj{"$let": obj{"vars": obj{"x": 2}, "in": obj{"$multiply": arr{"$$x", "$age"}}}}, 72},
		{"literal", obj{"$literal": obj{"$add": 1}}, obj{"$add": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, tt.expr)
			if !document.Equal(got, tt.want) {
				t.Errorf("Expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestIntegerResultsStayIntegral(t *testing.T) {
	v := eval(t, obj{"$add": arr{1, 2}})
	if _, ok := v.(int64); !ok {
		t.Errorf("Expected int64, got %T", v)
	}
	v = eval(t, obj{"$divide": arr{4, 2}})
	if _, ok := v.(float64); !ok {
		t.Errorf("Expected float64 from $divide, got %T", v)
	}
}

func TestFunction(t *testing.T) {
	body := func(args ...interface{}) interface{} {
		return args[0].(string) + "!"
	}
	if got := eval(t, obj{"$function": obj{"body": body, "args": arr{"$name"}}}); got != "Ada!" {
		t.Errorf("Expected Ada!, got %v", got)
	}
	if got := eval(t, obj{"$function": obj{"body": "args[0] * 2", "args": arr{"$age"}}}); !document.Equal(got, 72) {
		t.Errorf("Expected 72, got %v", got)
	}

	opts := core.DefaultOptions()
	opts.ScriptEnabled = false
	_, err := core.ComputeValue(sample, obj{"$function": obj{"body": body, "args": arr{}}}, "", core.NewContext(opts))
	if !errors.Is(err, core.ErrScriptDisabled) {
		t.Errorf("Expected ErrScriptDisabled, got %v", err)
	}
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		expr interface{}
	}{
		{"divide by zero", obj{"$divide": arr{1, 0}}},
		{"subtract arity", obj{"$subtract": arr{1}}},
		{"add string", obj{"$add": arr{1, "x"}}},
		{"range zero step", obj{"$range": arr{0, 5, 0}}},
		{"split empty", obj{"$split": arr{"abc", ""}}},
		{"switch without default", obj{"$switch": obj{"branches": arr{obj{"case": false, "then": 1}}}}},
		{"filter needs cond", obj{"$filter": obj{"input": arr{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.ComputeValue(sample, tt.expr, "", core.NewContext(nil))
			if !errors.Is(err, core.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	xs := arr{1, 2, 3, 4, 5}
	tests := []struct {
		params []int
		want   arr
	}{
		{[]int{2}, arr{1, 2}},
		{[]int{-2}, arr{4, 5}},
		{[]int{10}, arr{1, 2, 3, 4, 5}},
		{[]int{1, 2}, arr{2, 3}},
		{[]int{-3, 2}, arr{3, 4}},
		{[]int{7, 2}, arr{}},
	}
	for _, tt := range tests {
		got, err := expression.Slice(xs, tt.params...)
		if err != nil {
			t.Fatalf("Slice(%v) failed: %v", tt.params, err)
		}
		if !document.Equal(got, tt.want) {
			t.Errorf("Slice(%v): expected %v, got %v", tt.params, tt.want, got)
		}
	}
	if _, err := expression.Slice(xs, 0, 0); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for zero count, got %v", err)
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2021, time.January, 3, 4, 5, 6, 7*int(time.Millisecond), time.UTC)
	got, err := expression.FormatDate(ts, "%Y/%m/%d %H:%M:%S.%L %j %% %w")
	if err != nil {
		t.Fatalf("FormatDate failed: %v", err)
	}
	if want := "2021/01/03 04:05:06.007 003 % 1"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if _, err := expression.FormatDate(ts, "%Q"); err == nil {
		t.Error("Expected error for unknown specifier")
	}
}
