package core

import (
	"errors"
	"testing"
)

func TestContextCopyOnWrite(t *testing.T) {
	base := NewContext(nil)
	withVars := base.WithLocal(map[string]interface{}{"a": 1})
	merged := withVars.WithLocal(map[string]interface{}{"b": 2})

	if len(base.Variables()) != 0 {
		t.Errorf("base variables changed: %v", base.Variables())
	}
	if len(withVars.Variables()) != 1 {
		t.Errorf("parent variables changed: %v", withVars.Variables())
	}
	if merged.Variables()["a"] != 1 || merged.Variables()["b"] != 2 {
		t.Errorf("variables not merged: %v", merged.Variables())
	}
	if merged.Timestamp() != base.Timestamp() {
		t.Error("timestamp not shared by derived contexts")
	}
}

func TestContextRoot(t *testing.T) {
	ctx := NewContext(nil)
	if ctx.HasRoot() {
		t.Fatal("new context has a root")
	}

	doc := map[string]interface{}{"a": 1}
	rooted := ctx.WithCurrent(doc)
	if rooted.Root() == nil {
		t.Fatal("WithCurrent did not set the root")
	}
	if again := rooted.WithCurrent("other"); again != rooted {
		t.Error("WithCurrent replaced an existing root")
	}
	if rooted.WithoutRoot().HasRoot() {
		t.Error("WithoutRoot kept the root")
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("default options invalid: %v", err)
	}

	opts := DefaultOptions()
	opts.IDKey = ""
	if err := opts.Validate(); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("empty id key: got %v", err)
	}

	opts = DefaultOptions()
	opts.Collation = &Collation{Locale: "en", Strength: 5}
	if err := opts.Validate(); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("bad strength: got %v", err)
	}

	opts = DefaultOptions()
	opts.UseGlobalRegistry = false
	if err := opts.Validate(); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("no registry: got %v", err)
	}
}

func TestCollationComparator(t *testing.T) {
	c := &Collation{Locale: "en", Strength: 2}
	cmp, err := c.Comparator()
	if err != nil {
		t.Fatalf("Comparator: %v", err)
	}
	if cmp("abc", "ABC") != 0 {
		t.Error("strength 2 should ignore case")
	}
	if cmp(1, 2) >= 0 {
		t.Error("non-strings should fall back to value order")
	}

	numeric, err := (&Collation{Locale: "en", NumericOrdering: true}).Comparator()
	if err != nil {
		t.Fatalf("Comparator: %v", err)
	}
	if numeric("item2", "item10") >= 0 {
		t.Error("numeric ordering should sort item2 before item10")
	}
}
