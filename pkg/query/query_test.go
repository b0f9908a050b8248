package query_test

import (
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

func TestMain(m *testing.M) {
	if _, err := operators.Default(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type obj = map[string]interface{}
type arr = []interface{}

func mustQuery(t *testing.T, criteria obj) *query.Query {
	t.Helper()
	q, err := query.New(criteria, nil)
	if err != nil {
		t.Fatalf("Failed to compile %v: %v", criteria, err)
	}
	return q
}

func matches(t *testing.T, criteria obj, doc interface{}) bool {
	t.Helper()
	ok, err := mustQuery(t, criteria).Test(doc)
	if err != nil {
		t.Fatalf("Test failed for %v: %v", criteria, err)
	}
	return ok
}

func TestFindPreservesOrder(t *testing.T) {
	docs := arr{
		obj{"a": 1, "b": 2},
		obj{"a": 2, "b": 2},
		obj{"a": 3, "b": 4},
	}
	results, err := mustQuery(t, obj{"b": 2}).Find(docs, nil).All()
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for i := range results {
		if !document.Equal(results[i], docs[i]) {
			t.Errorf("Result %d: expected %v, got %v", i, docs[i], results[i])
		}
	}
}

func TestLogicalIdentities(t *testing.T) {
	docs := arr{
		obj{"a": 1, "b": "x"},
		obj{"a": 5, "b": "y"},
		obj{"a": 10},
		obj{"b": "x"},
		obj{"a": arr{1, 10}, "b": nil},
		obj{},
	}
	branches := []struct{ a, b obj }{
		{obj{"a": obj{"$gt": 3}}, obj{"b": "x"}},
		{obj{"a": 1}, obj{"a": 10}},
		{obj{"b": obj{"$exists": false}}, obj{"a": obj{"$lt": 5}}},
		{obj{"b": nil}, obj{"a": obj{"$in": arr{5, 10}}}},
	}

	for _, br := range branches {
		for _, doc := range docs {
			a := matches(t, br.a, doc)
			b := matches(t, br.b, doc)
			or := matches(t, obj{"$or": arr{br.a, br.b}}, doc)
			nor := matches(t, obj{"$nor": arr{br.a, br.b}}, doc)
			and := matches(t, obj{"$and": arr{br.a, br.b}}, doc)
			if or != (a || b) {
				t.Errorf("$or %v %v on %v: got %v", br.a, br.b, doc, or)
			}
			if nor != !(a || b) {
				t.Errorf("$nor %v %v on %v: got %v", br.a, br.b, doc, nor)
			}
			if and != (a && b) {
				t.Errorf("$and %v %v on %v: got %v", br.a, br.b, doc, and)
			}
		}
	}
}

func TestFieldOperators(t *testing.T) {
	doc := obj{
		"name":  "Alice",
		"age":   30,
		"tags":  arr{"go", "db"},
		"nums":  arr{1, 5, 9},
		"score": 7.5,
		"none":  nil,
		"addr":  obj{"city": "Prague", "zip": "11000"},
		"items": arr{obj{"sku": "a", "qty": 2}, obj{"sku": "b", "qty": 8}},
		"mask":  42,
	}

	tests := []struct {
		name     string
		criteria obj
		want     bool
	}{
		{"eq scalar", obj{"name": "Alice"}, true},
		{"eq array element", obj{"tags": "db"}, true},
		{"eq whole array", obj{"tags": arr{"go", "db"}}, true},
		{"eq nested path", obj{"addr.city": "Prague"}, true},
		{"eq path through array", obj{"items.sku": "b"}, true},
		{"eq null matches missing", obj{"missing": nil}, true},
		{"eq null matches null", obj{"none": nil}, true},
		{"ne", obj{"age": obj{"$ne": 30}}, false},
		{"gt", obj{"age": obj{"$gt": 29}}, true},
		{"gte float", obj{"score": obj{"$gte": 7.5}}, true},
		{"lt across types", obj{"name": obj{"$lt": 100}}, false},
		{"lte array element", obj{"nums": obj{"$lte": 1}}, true},
		{"in", obj{"age": obj{"$in": arr{10, 30}}}, true},
		{"in null matches missing", obj{"missing": obj{"$in": arr{nil}}}, true},
		{"in regex", obj{"name": obj{"$in": arr{regexp.MustCompile("^Al")}}}, true},
		{"nin", obj{"tags": obj{"$nin": arr{"js"}}}, true},
		{"exists", obj{"addr.zip": obj{"$exists": true}}, true},
		{"not exists", obj{"addr.street": obj{"$exists": true}}, false},
		{"type string", obj{"name": obj{"$type": "string"}}, true},
		{"type number code", obj{"age": obj{"$type": 16}}, true},
		{"type array", obj{"tags": obj{"$type": "array"}}, true},
		{"mod", obj{"age": obj{"$mod": arr{7, 2}}}, true},
		{"regex string", obj{"name": obj{"$regex": "^al", "$options": "i"}}, true},
		{"regex literal", obj{"addr.city": regexp.MustCompile("gue$")}, true},
		{"size", obj{"nums": obj{"$size": 3}}, true},
		{"all", obj{"tags": obj{"$all": arr{"db", "go"}}}, true},
		{"all missing value", obj{"tags": obj{"$all": arr{"db", "js"}}}, false},
		{"elemMatch", obj{"items": obj{"$elemMatch": obj{"sku": "b", "qty": obj{"$gt": 5}}}}, true},
		{"elemMatch needs one element", obj{"items": obj{"$elemMatch": obj{"sku": "a", "qty": obj{"$gt": 5}}}}, false},
		{"elemMatch on scalars", obj{"nums": obj{"$elemMatch": obj{"$gt": 4, "$lt": 6}}}, true},
		{"not", obj{"age": obj{"$not": obj{"$gt": 40}}}, true},
		{"not regex", obj{"name": obj{"$not": regexp.MustCompile("^B")}}, true},
		{"bitsAllSet", obj{"mask": obj{"$bitsAllSet": arr{1, 3}}}, true},
		{"bitsAnyClear", obj{"mask": obj{"$bitsAnyClear": 42}}, false},
		{"bitsAllClear", obj{"mask": obj{"$bitsAllClear": 21}}, true},
		{"bitsAnySet", obj{"mask": obj{"$bitsAnySet": arr{0, 2}}}, false},
		{"expr", obj{"$expr": obj{"$gt": arr{"$age", "$score"}}}, true},
		{"multiple operators", obj{"age": obj{"$gt": 18, "$lt": 25}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matches(t, tt.criteria, doc); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAllWithElemMatch(t *testing.T) {
	criteria := obj{"qty": obj{"$all": arr{
		obj{"$elemMatch": obj{"size": "M", "num": obj{"$gt": 50}}},
		obj{"$elemMatch": obj{"num": 100, "color": "green"}},
	}}}

	tests := []struct {
		name string
		doc  obj
		want bool
	}{
		{"different elements", obj{"qty": arr{
			obj{"size": "M", "num": 60, "color": "blue"},
			obj{"size": "S", "num": 100, "color": "green"},
		}}, true},
		{"one query unmatched", obj{"qty": arr{
			obj{"size": "M", "num": 60, "color": "blue"},
		}}, false},
		{"empty array", obj{"qty": arr{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matches(t, criteria, tt.doc); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if matches(t, obj{"qty": obj{"$all": arr{}}}, obj{"qty": arr{1}}) {
		t.Error("Expected empty $all to match nothing")
	}
}

func TestWhere(t *testing.T) {
	doc := obj{"a": 2, "b": 3}
	fn := func(v interface{}) bool {
		m := v.(map[string]interface{})
		return m["a"].(int) < m["b"].(int)
	}
	if !matches(t, obj{"$where": fn}, doc) {
		t.Error("Expected function $where to match")
	}
	if !matches(t, obj{"$where": "a + b == 5 && this.a == 2"}, doc) {
		t.Error("Expected script $where to match")
	}

	opts := core.DefaultOptions()
	opts.ScriptEnabled = false
	if _, err := query.New(obj{"$where": fn}, opts); !errors.Is(err, core.ErrScriptDisabled) {
		t.Errorf("Expected ErrScriptDisabled, got %v", err)
	}
}

func TestJSONSchemaValidator(t *testing.T) {
	if _, err := query.New(obj{"$jsonSchema": obj{}}, nil); !errors.Is(err, core.ErrMissingValidator) {
		t.Errorf("Expected ErrMissingValidator, got %v", err)
	}

	opts := core.DefaultOptions()
	opts.JSONSchemaValidator = func(schema interface{}) (func(interface{}) (bool, error), error) {
		required := schema.(map[string]interface{})["required"].([]interface{})
		return func(v interface{}) (bool, error) {
			m := v.(map[string]interface{})
			for _, f := range required {
				if _, ok := m[f.(string)]; !ok {
					return false, nil
				}
			}
			return true, nil
		}, nil
	}
	q, err := query.New(obj{"$jsonSchema": obj{"required": arr{"name"}}}, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ok, _ := q.Test(obj{"name": "x"}); !ok {
		t.Error("Expected document with name to match")
	}
	if ok, _ := q.Test(obj{"other": 1}); ok {
		t.Error("Expected document without name not to match")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		criteria obj
		want     error
	}{
		{"unknown top level", obj{"$foo": 1}, core.ErrUnknownOperator},
		{"unknown field operator", obj{"a": obj{"$foo": 1}}, core.ErrUnknownOperator},
		{"bad mod", obj{"a": obj{"$mod": arr{0, 1}}}, core.ErrInvalidArgument},
		{"in needs array", obj{"a": obj{"$in": 1}}, core.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := query.New(tt.criteria, nil); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	docs := arr{obj{"a": 1}, obj{"a": 2}, obj{"a": 3}}
	rest, err := mustQuery(t, obj{"a": obj{"$gte": 2}}).Remove(docs)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !document.Equal(rest, arr{obj{"a": 1}}) {
		t.Errorf("Expected [{a:1}], got %v", rest)
	}
}
