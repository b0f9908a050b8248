package document

import (
	"errors"
	"testing"
)

func TestStringifyKeyOrder(t *testing.T) {
	a := map[string]interface{}{"b": 2, "a": []interface{}{1, "x"}}
	b := map[string]interface{}{"a": []interface{}{1.0, "x"}, "b": int64(2)}

	sa, err := Stringify(a)
	if err != nil {
		t.Fatalf("Stringify failed: %v", err)
	}
	sb, err := Stringify(b)
	if err != nil {
		t.Fatalf("Stringify failed: %v", err)
	}
	if !Equal(a, b) {
		t.Fatal("expected documents to be equal")
	}
	if sa != sb {
		t.Errorf("expected identical encodings, got %q and %q", sa, sb)
	}
	if sa != `{a:[1,"x"],b:2}` {
		t.Errorf("unexpected encoding %q", sa)
	}
}

func TestStringifyCycle(t *testing.T) {
	doc := map[string]interface{}{"a": 1}
	doc["self"] = doc

	if _, err := Stringify(doc); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}

	arr := []interface{}{1, nil}
	arr[1] = arr
	if _, err := Stringify(arr); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected for array, got %v", err)
	}
}

func TestStringifySharedSubtreeIsNotACycle(t *testing.T) {
	shared := map[string]interface{}{"x": 1}
	doc := map[string]interface{}{"a": shared, "b": shared}

	if _, err := Stringify(doc); err != nil {
		t.Errorf("shared subtree should encode, got %v", err)
	}
}

type money struct {
	amount   int
	currency string
}

func (m *money) TypeName() string { return "Money" }

func (m *money) Members() map[string]interface{} {
	return map[string]interface{}{"amount": m.amount, "currency": m.currency}
}

func TestStringifyEncodable(t *testing.T) {
	s, err := Stringify(&money{10, "EUR"})
	if err != nil {
		t.Fatalf("Stringify failed: %v", err)
	}
	if s != `Money{"amount":10,"currency":"EUR"}` {
		t.Errorf("unexpected encoding %q", s)
	}
}

func TestStringifyQuotesKeys(t *testing.T) {
	a, err := Stringify(map[string]interface{}{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Stringify failed: %v", err)
	}
	b, err := Stringify(map[string]interface{}{"a:1,b": 2})
	if err != nil {
		t.Fatalf("Stringify failed: %v", err)
	}
	if a == b {
		t.Errorf("different documents share the encoding %q", a)
	}
	if a != `{"a":1,"b":2}` {
		t.Errorf("unexpected encoding %q", a)
	}
}

func TestHashCodeMatchesForEqualValues(t *testing.T) {
	h1, err := HashCode(map[string]interface{}{"a": 1, "b": 2.0}, nil)
	if err != nil {
		t.Fatalf("HashCode failed: %v", err)
	}
	h2, _ := HashCode(map[string]interface{}{"b": int64(2), "a": int32(1)}, nil)
	if h1 != h2 {
		t.Errorf("expected equal hashes, got %d and %d", h1, h2)
	}
}
