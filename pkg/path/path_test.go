package path

import (
	"testing"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

func sampleDoc() map[string]interface{} {
	return map[string]interface{}{
		"name": "ada",
		"address": map[string]interface{}{
			"city": "London",
			"geo":  []interface{}{51.5, -0.12},
		},
		"items": []interface{}{
			map[string]interface{}{"sku": "a", "qty": 1},
			map[string]interface{}{"sku": "b", "qty": 2},
			map[string]interface{}{"sku": "c"},
		},
	}
}

func TestResolve(t *testing.T) {
	doc := sampleDoc()

	if got := Resolve(doc, "address.city"); got != "London" {
		t.Errorf("address.city = %v", got)
	}
	if got := Resolve(doc, "address.geo.1"); got != -0.12 {
		t.Errorf("address.geo.1 = %v", got)
	}
	if got := Resolve(doc, "address.zip"); !document.IsUndefined(got) {
		t.Errorf("address.zip = %v, want undefined", got)
	}
	if got := Resolve(doc, "name.first"); !document.IsUndefined(got) {
		t.Errorf("name.first = %v, want undefined", got)
	}

	got := Resolve(doc, "items.qty")
	want := []interface{}{1, 2}
	if !document.Equal(got, want) {
		t.Errorf("items.qty = %v, want %v", got, want)
	}

	if got := Resolve(doc, "items.1.sku"); got != "b" {
		t.Errorf("items.1.sku = %v", got)
	}
}

func TestResolveSimpleRoot(t *testing.T) {
	for _, v := range []interface{}{nil, 1, "x", true} {
		if got := Resolve(v, "a"); !document.IsUndefined(got) {
			t.Errorf("Resolve(%v) = %v, want undefined", v, got)
		}
	}
}

func TestResolveUnwrap(t *testing.T) {
	doc := map[string]interface{}{
		"a": []interface{}{map[string]interface{}{"b": 5}},
	}
	if got := Resolve(doc, "a.b", WithUnwrapArray()); got != 5 {
		t.Errorf("unwrapped a.b = %v, want 5", got)
	}
	got := Resolve(doc, "a.b")
	if !document.Equal(got, []interface{}{5}) {
		t.Errorf("a.b = %v, want [5]", got)
	}
}

func TestResolveNestedArrayStops(t *testing.T) {
	inner := []interface{}{map[string]interface{}{"b": 1}}
	doc := map[string]interface{}{"a": []interface{}{inner}}

	got := Resolve(doc, "a.b")
	if !document.Equal(got, []interface{}{inner}) {
		t.Errorf("a.b = %v", got)
	}
}

func TestResolveGraph(t *testing.T) {
	doc := map[string]interface{}{
		"a": map[string]interface{}{"b": 1, "c": 2},
	}
	got := ResolveGraph(doc, "a.b", GraphOptions{})
	want := map[string]interface{}{"a": map[string]interface{}{"b": 1}}
	if !document.Equal(got, want) {
		t.Errorf("ResolveGraph = %v, want %v", got, want)
	}

	got = ResolveGraph(doc, "a.b", GraphOptions{PreserveKeys: true})
	want = map[string]interface{}{"a": map[string]interface{}{"b": 1, "c": 2}}
	if !document.Equal(got, want) {
		t.Errorf("ResolveGraph preserve keys = %v, want %v", got, want)
	}

	if got := ResolveGraph(doc, "x.y", GraphOptions{}); !document.IsUndefined(got) {
		t.Errorf("ResolveGraph missing = %v", got)
	}
}

func TestResolveGraphArray(t *testing.T) {
	doc := sampleDoc()

	got := ResolveGraph(doc, "items.qty", GraphOptions{})
	want := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"qty": 1},
			map[string]interface{}{"qty": 2},
		},
	}
	if !document.Equal(got, want) {
		t.Errorf("ResolveGraph = %v, want %v", got, want)
	}

	got = ResolveGraph(doc, "items.qty", GraphOptions{PreserveMissing: true})
	items := got.(map[string]interface{})["items"].([]interface{})
	if len(items) != 3 || !document.IsMissing(items[2]) {
		t.Errorf("PreserveMissing items = %v", items)
	}
}

func TestSetValue(t *testing.T) {
	doc := map[string]interface{}{}
	if err := SetValue(doc, "a.b.c", 1); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := Resolve(doc, "a.b.c"); got != 1 {
		t.Errorf("a.b.c = %v", got)
	}

	doc = map[string]interface{}{"list": []interface{}{map[string]interface{}{}}}
	if err := SetValue(doc, "list.2", "x"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	list := doc["list"].([]interface{})
	if len(list) != 3 || list[1] != nil || list[2] != "x" {
		t.Errorf("grown list = %v", list)
	}

	if err := SetValue(doc, "list.0.k", true); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := Resolve(doc, "list.0.k"); got != true {
		t.Errorf("list.0.k = %v", got)
	}
}

func TestRemoveValue(t *testing.T) {
	doc := sampleDoc()
	if err := RemoveValue(doc, "address.city", false); err != nil {
		t.Fatalf("RemoveValue: %v", err)
	}
	if Has(doc["address"], "city") {
		t.Error("address.city still present")
	}

	if err := RemoveValue(doc, "items.1", false); err != nil {
		t.Fatalf("RemoveValue: %v", err)
	}
	items := doc["items"].([]interface{})
	if len(items) != 2 || Get(items[1], "sku") != "c" {
		t.Errorf("items after splice = %v", items)
	}

	if err := RemoveValue(doc, "items.sku", true); err != nil {
		t.Fatalf("RemoveValue: %v", err)
	}
	for _, item := range doc["items"].([]interface{}) {
		if Has(item, "sku") {
			t.Errorf("sku not removed from %v", item)
		}
	}
}

func TestWalkDescendArray(t *testing.T) {
	doc := sampleDoc()
	var seen int
	err := Walk(doc, "items.qty", func(c interface{}, k string) error {
		seen++
		return nil
	}, WalkOptions{DescendArray: true})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if seen != 3 {
		t.Errorf("visited %d containers, want 3", seen)
	}
}

func TestMerge(t *testing.T) {
	a := map[string]interface{}{"x": map[string]interface{}{"y": 1}}
	b := map[string]interface{}{"x": map[string]interface{}{"z": 2}, "w": 3}
	got, err := Merge(a, b, false)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := map[string]interface{}{"x": map[string]interface{}{"y": 1, "z": 2}, "w": 3}
	if !document.Equal(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}

	got, err = Merge([]interface{}{map[string]interface{}{"a": 1}}, []interface{}{map[string]interface{}{"b": 2}}, true)
	if err != nil {
		t.Fatalf("Merge flatten: %v", err)
	}
	if !document.Equal(got, []interface{}{map[string]interface{}{"a": 1, "b": 2}}) {
		t.Errorf("Merge flatten = %v", got)
	}

	if _, err := Merge([]interface{}{}, map[string]interface{}{}, false); err == nil {
		t.Error("expected mismatched types error")
	}
}

func TestFilterMissing(t *testing.T) {
	v := map[string]interface{}{
		"a": document.Missing,
		"b": []interface{}{1, document.Missing, 2},
	}
	got := FilterMissing(v)
	want := map[string]interface{}{"b": []interface{}{1, 2}}
	if !document.Equal(got, want) {
		t.Errorf("FilterMissing = %v, want %v", got, want)
	}
}
