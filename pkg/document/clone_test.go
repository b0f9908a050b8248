package document

import (
	"errors"
	"testing"
)

func TestCloneDeep(t *testing.T) {
	doc := map[string]interface{}{
		"name": "Alice",
		"tags": []interface{}{"a", map[string]interface{}{"k": 1}},
	}

	out, err := CloneDeep(doc)
	if err != nil {
		t.Fatalf("CloneDeep failed: %v", err)
	}
	clone := out.(map[string]interface{})
	if !Equal(doc, clone) {
		t.Fatal("expected clone to equal original")
	}

	clone["tags"].([]interface{})[1].(map[string]interface{})["k"] = 2
	if doc["tags"].([]interface{})[1].(map[string]interface{})["k"] != 1 {
		t.Error("modifying clone changed the original")
	}
}

func TestCloneDeepCycle(t *testing.T) {
	doc := map[string]interface{}{}
	doc["self"] = []interface{}{doc}

	if _, err := CloneDeep(doc); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestCopyIsShallow(t *testing.T) {
	inner := map[string]interface{}{"k": 1}
	doc := map[string]interface{}{"inner": inner}

	out := Copy(doc).(map[string]interface{})
	out["added"] = true
	if _, ok := doc["added"]; ok {
		t.Error("copy should not share the top level map")
	}
	out["inner"].(map[string]interface{})["k"] = 2
	if inner["k"] != 2 {
		t.Error("copy should share nested values")
	}

	if Copy("scalar") != "scalar" {
		t.Error("scalars should be returned unchanged")
	}
}

func TestCloneModes(t *testing.T) {
	doc := map[string]interface{}{"inner": map[string]interface{}{"k": 1}}

	out, err := Clone(CloneFull, doc)
	if err != nil {
		t.Fatalf("Clone(CloneFull) failed: %v", err)
	}
	out.(map[string]interface{})["inner"].(map[string]interface{})["k"] = 2
	if doc["inner"].(map[string]interface{})["k"] != 1 {
		t.Error("full clone should not share nested values")
	}

	cyclic := map[string]interface{}{}
	cyclic["nested"] = map[string]interface{}{"back": cyclic}
	if _, err := Clone(CloneFull, cyclic); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}

	if same, _ := Clone(CloneNone, doc); same.(map[string]interface{})["inner"] == nil {
		t.Error("CloneNone should return the value itself")
	}
	for mode, name := range map[CloneMode]string{CloneNone: "none", CloneCopy: "copy", CloneFull: "deep"} {
		if mode.String() != name {
			t.Errorf("%d.String() = %q, want %q", mode, mode.String(), name)
		}
	}
}
