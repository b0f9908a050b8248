package schema_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/query"
	"github.com/agebrock/agebrock-mimo/pkg/schema"
)

func TestMain(m *testing.M) {
	if _, err := operators.Default(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var person = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name", "age"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{"type": "string"},
		"age":  map[string]interface{}{"type": "integer", "minimum": 0},
	},
}

func TestValidator(t *testing.T) {
	match, err := schema.Validator(person)
	require.NoError(t, err)

	ok, err := match(map[string]interface{}{"name": "ann", "age": int64(31)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = match(map[string]interface{}{"name": "bob"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = match(map[string]interface{}{"name": "cy", "age": -1})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileFromJSON(t *testing.T) {
	s, err := schema.Compile(`{"type": "object", "required": ["x"]}`)
	require.NoError(t, err)

	err = s.Validate(context.Background(), map[string]interface{}{"y": 1})
	require.ErrorIs(t, err, schema.ErrValidation)

	require.NoError(t, s.Validate(context.Background(), map[string]interface{}{"x": 1}))
}

func TestCompileRejectsNonDocuments(t *testing.T) {
	_, err := schema.Compile(42)
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)

	_, err = schema.Compile("{not json")
	assert.ErrorIs(t, err, schema.ErrInvalidSchema)
}

func TestJSONSchemaQuery(t *testing.T) {
	opts := schema.Install(core.DefaultOptions())
	q, err := query.New(map[string]interface{}{"$jsonSchema": person}, opts)
	require.NoError(t, err)

	docs := []interface{}{
		map[string]interface{}{"name": "ann", "age": int64(31)},
		map[string]interface{}{"name": "bob", "age": "old"},
		map[string]interface{}{"age": int64(3)},
	}
	got, err := q.Find(docs, nil).All()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ann", got[0].(map[string]interface{})["name"])
}
