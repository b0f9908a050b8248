package document

import (
	"errors"
	"testing"
	"time"
)

func TestObjectIDRoundTrip(t *testing.T) {
	id := NewObjectID()
	if id.IsZero() {
		t.Fatal("new ObjectID is zero")
	}
	if len(id.Hex()) != 24 || id.String() != id.Hex() {
		t.Fatalf("unexpected hex form %q", id.Hex())
	}
	parsed, err := ObjectIDFromHex(id.Hex())
	if err != nil {
		t.Fatalf("ObjectIDFromHex: %v", err)
	}
	if parsed != id {
		t.Errorf("parsed %v, want %v", parsed, id)
	}
}

func TestObjectIDFromHexRejects(t *testing.T) {
	for _, s := range []string{"", "abc", "zzzzzzzzzzzzzzzzzzzzzzzz", "0123456789abcdef012345678"} {
		if _, err := ObjectIDFromHex(s); !errors.Is(err, ErrInvalidObjectID) {
			t.Errorf("ObjectIDFromHex(%q) error = %v, want ErrInvalidObjectID", s, err)
		}
	}
}

func TestObjectIDOrdering(t *testing.T) {
	early := NewObjectIDAt(time.Unix(1_000, 0))
	late := NewObjectIDAt(time.Unix(2_000, 0))
	if early.Compare(late) >= 0 || late.Compare(early) <= 0 || early.Compare(early) != 0 {
		t.Error("ObjectIDs should order by timestamp")
	}
	if got := Compare(early, late); got >= 0 {
		t.Errorf("Compare(early, late) = %d, want negative", got)
	}

	a, b := NewObjectID(), NewObjectID()
	if a == b || a.Compare(b) == 0 {
		t.Error("consecutive ObjectIDs should be distinct")
	}
}

func TestObjectIDTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 15, 999, time.UTC)
	if got := NewObjectIDAt(at).Timestamp(); !got.Equal(at.Truncate(time.Second)) {
		t.Errorf("Timestamp() = %v, want %v", got, at.Truncate(time.Second))
	}
}
