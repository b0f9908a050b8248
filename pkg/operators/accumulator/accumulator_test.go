package accumulator_test

import (
	"math"
	"os"
	"testing"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/operators/accumulator"
)

func TestMain(m *testing.M) {
	if _, err := operators.Default(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type obj = map[string]interface{}
type arr = []interface{}

var sales = arr{
	obj{"item": "a", "qty": 2, "price": 10, "tags": obj{"x": 1}},
	obj{"item": "b", "qty": 4, "price": 2.5, "tags": obj{"y": 2}},
	obj{"item": "a", "qty": 6, "tags": obj{"x": 3}},
	obj{"item": "c", "qty": nil},
}

func TestAccumulators(t *testing.T) {
	ops := accumulator.Operators()
	tests := []struct {
		op   string
		expr interface{}
		want interface{}
	}{
		{"$sum", "$qty", 12},
		{"$sum", 1, 4},
		{"$sum", "$price", 12.5},
		{"$sum", "$missing", 0},
		{"$avg", "$qty", 4.0},
		{"$avg", "$missing", nil},
		{"$count", nil, 4},
		{"$first", "$item", "a"},
		{"$last", "$qty", nil},
		{"$max", "$qty", 6},
		{"$min", "$qty", 2},
		{"$min", "$missing", nil},
		{"$push", "$item", arr{"a", "b", "a", "c"}},
		{"$push", obj{"$multiply": arr{"$qty", 10}}, arr{20, 40, 60, nil}},
		{"$addToSet", "$item", arr{"a", "b", "c"}},
		{"$mergeObjects", "$tags", obj{"x": 3, "y": 2}},
		{"$stdDevPop", "$qty", math.Sqrt(8.0 / 3.0)},
		{"$stdDevSamp", "$qty", 2.0},
		{"$stdDevSamp", "$missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			fn, ok := ops[tt.op]
			if !ok {
				t.Fatalf("Accumulator %s not found", tt.op)
			}
			got, err := fn(sales, tt.expr, core.NewContext(nil))
			if err != nil {
				t.Fatalf("%s failed: %v", tt.op, err)
			}
			if !document.Equal(got, tt.want) {
				t.Errorf("%s %v: expected %v, got %v", tt.op, tt.expr, tt.want, got)
			}
		})
	}
}

func TestEmptyGroup(t *testing.T) {
	ctx := core.NewContext(nil)
	for _, op := range []string{"$first", "$last", "$avg", "$max", "$stdDevPop"} {
		got, err := accumulator.Operators()[op](arr{}, "$qty", ctx)
		if err != nil {
			t.Fatalf("%s failed: %v", op, err)
		}
		if got != nil {
			t.Errorf("%s: expected nil for empty group, got %v", op, got)
		}
	}
	if got, _ := accumulator.Sum(arr{}, "$qty", ctx); !document.Equal(got, 0) {
		t.Errorf("Expected $sum 0 for empty group, got %v", got)
	}
}

func TestAccumulatorAsExpression(t *testing.T) {
	doc := obj{"scores": arr{3, 9, 6}}
	got, err := core.ComputeValue(doc, obj{"$max": "$scores"}, "", core.NewContext(nil))
	if err != nil {
		t.Fatalf("ComputeValue failed: %v", err)
	}
	if !document.Equal(got, 9) {
		t.Errorf("Expected 9, got %v", got)
	}
}
