package update_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/update"
)

func TestMain(m *testing.M) {
	if _, err := operators.Default(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type obj = map[string]interface{}
type arr = []interface{}

func apply(t *testing.T, doc obj, expr obj, filters ...obj) []string {
	t.Helper()
	var af []map[string]interface{}
	for _, f := range filters {
		af = append(af, f)
	}
	paths, err := update.Update(doc, expr, af, nil, nil)
	require.NoError(t, err)
	return paths
}

func TestTokenizePath(t *testing.T) {
	node, idents, err := update.TokenizePath("a.$[x].b.$[].c.$[y2]")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y2"}, idents)
	assert.Equal(t, "a", node.Parent)
	assert.Equal(t, "x", node.Identifier)
	require.NotNil(t, node.Next)
	assert.Equal(t, "b", node.Next.Parent)
	assert.Equal(t, update.AllPositional, node.Next.Identifier)
	require.NotNil(t, node.Next.Next)
	assert.Equal(t, "c", node.Next.Next.Parent)
	assert.Equal(t, "y2", node.Next.Next.Identifier)
	assert.Nil(t, node.Next.Next.Next)

	plain, idents, err := update.TokenizePath("a.b")
	require.NoError(t, err)
	assert.Empty(t, idents)
	assert.Equal(t, "a.b", plain.Parent)
	assert.Empty(t, plain.Identifier)

	_, _, err = update.TokenizePath("a.$[X].b")
	assert.ErrorIs(t, err, update.ErrInvalidIdentifier)
}

func TestModifiedPath(t *testing.T) {
	assert.Equal(t, "items.qty", update.ModifiedPath("items.$[x].qty"))
	assert.Equal(t, "a.b.c", update.ModifiedPath("a.$[].b.$[y].c"))
	assert.Equal(t, "a.b", update.ModifiedPath("a.b"))
}

func TestSetReportsOnlyRealChanges(t *testing.T) {
	doc := obj{"a": 1, "b": obj{"c": "x"}}

	assert.Empty(t, apply(t, doc, obj{"$set": obj{"a": 1}}))
	assert.Equal(t, []string{"a"}, apply(t, doc, obj{"$set": obj{"a": 2}}))
	assert.Equal(t, 2, doc["a"])

	assert.Equal(t, []string{"b.c", "d.e"}, apply(t, doc, obj{"$set": obj{"b.c": "y", "d.e": true}}))
	assert.Equal(t, obj{"c": "y"}, doc["b"])
	assert.Equal(t, obj{"e": true}, doc["d"])
}

func TestSetClonesValue(t *testing.T) {
	value := obj{"x": 1}
	doc := obj{}
	apply(t, doc, obj{"$set": obj{"a": value}})
	value["x"] = 2
	assert.Equal(t, obj{"x": 1}, doc["a"])
}

func TestPushModifiers(t *testing.T) {
	doc := obj{"a": arr{obj{"k": 3}, obj{"k": 1}}}
	paths := apply(t, doc, obj{"$push": obj{"a": obj{
		"$each":  arr{obj{"k": 2}},
		"$sort":  obj{"k": 1},
		"$slice": -2,
	}}})
	assert.Equal(t, []string{"a"}, paths)
	assert.Equal(t, arr{obj{"k": 2}, obj{"k": 3}}, doc["a"])
}

func TestPushPosition(t *testing.T) {
	doc := obj{"a": arr{1, 2, 3}}
	apply(t, doc, obj{"$push": obj{"a": obj{"$each": arr{9}, "$position": -1}}})
	assert.Equal(t, arr{1, 2, 9, 3}, doc["a"])

	apply(t, doc, obj{"$push": obj{"b": 1}})
	assert.Equal(t, arr{1}, doc["b"])

	_, err := update.Update(obj{"a": 1}, obj{"$push": obj{"a": 2}}, nil, nil, nil)
	assert.ErrorIs(t, err, update.ErrNotArray)
}

func TestIncWithArrayFilters(t *testing.T) {
	doc := obj{"items": arr{obj{"qty": 3}, obj{"qty": 8}, obj{"qty": 10}}}
	filters := []map[string]interface{}{{"x.qty": obj{"$gt": 5}}}

	paths, err := update.Update(doc, obj{"$inc": obj{"items.$[x].qty": 1}}, filters, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"items.qty"}, paths)
	assert.Equal(t, arr{obj{"qty": 3}, obj{"qty": int64(9)}, obj{"qty": int64(11)}}, doc["items"])

	none := []map[string]interface{}{{"x.qty": obj{"$gt": 50}}}
	paths, err = update.Update(doc, obj{"$inc": obj{"items.$[x].qty": 1}}, none, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestAllPositional(t *testing.T) {
	doc := obj{"grades": arr{80, 85, 90}}
	paths := apply(t, doc, obj{"$inc": obj{"grades.$[]": 10}})
	assert.Equal(t, []string{"grades"}, paths)
	assert.Equal(t, arr{int64(90), int64(95), int64(100)}, doc["grades"])
}

func TestIncAndMul(t *testing.T) {
	doc := obj{"n": 2, "f": 1.5, "s": "x"}
	apply(t, doc, obj{"$inc": obj{"n": 3, "missing": 1}})
	assert.Equal(t, int64(5), doc["n"])
	assert.Equal(t, int64(1), doc["missing"])

	apply(t, doc, obj{"$mul": obj{"f": 2, "gone": 4}})
	assert.Equal(t, 3.0, doc["f"])
	assert.Equal(t, int64(0), doc["gone"])

	_, err := update.Update(doc, obj{"$inc": obj{"s": 1}}, nil, nil, nil)
	assert.ErrorIs(t, err, update.ErrNonNumeric)
	_, err = update.Update(doc, obj{"$inc": obj{"n": "1"}}, nil, nil, nil)
	assert.ErrorIs(t, err, update.ErrNonNumeric)
}

func TestMinMax(t *testing.T) {
	doc := obj{"lo": 5, "hi": 5}
	assert.Equal(t, []string{"lo"}, apply(t, doc, obj{"$min": obj{"lo": 3, "hi": 7}}))
	assert.Equal(t, []string{"hi"}, apply(t, doc, obj{"$max": obj{"lo": 1, "hi": 7}}))
	assert.Equal(t, obj{"lo": 3, "hi": 7}, doc)
}

func TestPullForms(t *testing.T) {
	doc := obj{
		"nums":  arr{1, 5, 6, 9},
		"tags":  arr{"a", "b", "a"},
		"items": arr{obj{"n": 1, "ok": true}, obj{"n": 2, "ok": false}},
	}
	paths := apply(t, doc, obj{"$pull": obj{
		"nums":  obj{"$gte": 6},
		"tags":  "a",
		"items": obj{"ok": false},
	}})
	assert.Equal(t, []string{"items", "nums", "tags"}, paths)
	assert.Equal(t, arr{1, 5}, doc["nums"])
	assert.Equal(t, arr{"b"}, doc["tags"])
	assert.Equal(t, arr{obj{"n": 1, "ok": true}}, doc["items"])

	assert.Empty(t, apply(t, doc, obj{"$pull": obj{"tags": "z"}}))
}

func TestPullAll(t *testing.T) {
	doc := obj{"a": arr{0, 2, 5, 5, 1, 0}}
	apply(t, doc, obj{"$pullAll": obj{"a": arr{0, 5}}})
	assert.Equal(t, arr{2, 1}, doc["a"])
}

func TestAddToSet(t *testing.T) {
	doc := obj{"tags": arr{"a", "b"}}
	assert.Empty(t, apply(t, doc, obj{"$addToSet": obj{"tags": "a"}}))
	assert.Equal(t, []string{"tags"}, apply(t, doc, obj{"$addToSet": obj{"tags": obj{"$each": arr{"c", "a", "c"}}}}))
	assert.Equal(t, arr{"a", "b", "c"}, doc["tags"])
}

func TestPop(t *testing.T) {
	doc := obj{"a": arr{1, 2, 3}}
	apply(t, doc, obj{"$pop": obj{"a": -1}})
	assert.Equal(t, arr{2, 3}, doc["a"])
	apply(t, doc, obj{"$pop": obj{"a": 1}})
	assert.Equal(t, arr{2}, doc["a"])
	assert.Empty(t, apply(t, doc, obj{"$pop": obj{"missing": 1}}))
}

func TestRenameAndUnset(t *testing.T) {
	doc := obj{"a": 1, "b": obj{"c": 2}, "list": arr{1, 2}}
	paths := apply(t, doc, obj{"$rename": obj{"a": "z", "b.c": "b.d"}})
	assert.Equal(t, []string{"a", "b.c", "b.d", "z"}, paths)
	assert.Equal(t, obj{"z": 1, "b": obj{"d": 2}, "list": arr{1, 2}}, doc)

	paths = apply(t, doc, obj{"$unset": obj{"z": "", "list.0": "", "nope": ""}})
	assert.Equal(t, []string{"list.0", "z"}, paths)
	assert.Equal(t, obj{"b": obj{"d": 2}, "list": arr{nil, 2}}, doc)
}

func TestBit(t *testing.T) {
	doc := obj{"flags": 13}
	apply(t, doc, obj{"$bit": obj{"flags": obj{"and": 10}}})
	assert.Equal(t, int64(8), doc["flags"])
	apply(t, doc, obj{"$bit": obj{"flags": obj{"or": 5}}})
	assert.Equal(t, int64(13), doc["flags"])
	apply(t, doc, obj{"$bit": obj{"flags": obj{"xor": 1}}})
	assert.Equal(t, int64(12), doc["flags"])
}

func TestCurrentDate(t *testing.T) {
	doc := obj{}
	apply(t, doc, obj{"$currentDate": obj{"d": true, "ts": obj{"$type": "timestamp"}}})
	assert.IsType(t, time.Time{}, doc["d"])
	assert.IsType(t, int64(0), doc["ts"])
}

func TestConditionGate(t *testing.T) {
	doc := obj{"status": "A", "n": 1}
	paths, err := update.Update(doc, obj{"$set": obj{"n": 2}}, nil, obj{"status": "B"}, nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Equal(t, 1, doc["n"])

	paths, err = update.Update(doc, obj{"$set": obj{"n": 2}}, nil, obj{"status": "A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, paths)
}

func TestInvalidUpdates(t *testing.T) {
	_, err := update.Update(obj{}, obj{"$set": obj{"a": 1}, "$inc": obj{"b": 1}}, nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidExpression)

	_, err = update.Update(obj{}, obj{"$nope": obj{"a": 1}}, nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrUnknownOperator)

	_, err = update.Update(obj{}, obj{"$set": 1}, nil, nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestUpdaterUsesCloneMode(t *testing.T) {
	opts := core.DefaultOptions()
	opts.CloneMode = document.CloneNone
	u, err := update.NewUpdater(opts)
	require.NoError(t, err)

	value := obj{"x": 1}
	doc := obj{}
	_, err = u.Update(doc, obj{"$set": obj{"a": value}}, nil, nil)
	require.NoError(t, err)
	value["x"] = 2
	assert.Equal(t, obj{"x": 2}, doc["a"])
}
