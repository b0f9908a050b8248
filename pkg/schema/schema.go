// Package schema backs the $jsonSchema query operator with
// github.com/qri-io/jsonschema.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/agebrock/agebrock-mimo/pkg/core"
)

// Schema is a compiled JSON schema
type Schema struct {
	rs *jsonschema.Schema
}

// Compile builds a Schema from a decoded schema document or raw JSON bytes
func Compile(schema interface{}) (*Schema, error) {
	var data []byte
	switch s := schema.(type) {
	case []byte:
		data = s
	case string:
		data = []byte(s)
	case map[string]interface{}:
		b, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		data = b
	default:
		return nil, fmt.Errorf("%w: expected a document, got %T", ErrInvalidSchema, schema)
	}

	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(data, rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return &Schema{rs: rs}, nil
}

// Errors returns the validation failures of obj, one message per key
func (s *Schema) Errors(ctx context.Context, obj interface{}) ([]string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	keyErrs, err := s.rs.ValidateBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	msgs := make([]string, len(keyErrs))
	for i, ke := range keyErrs {
		p := ke.PropertyPath
		if p == "" {
			p = "/"
		}
		msgs[i] = p + ": " + ke.Message
	}
	return msgs, nil
}

// Validate returns ErrValidation listing every failure when obj does not
// match
func (s *Schema) Validate(ctx context.Context, obj interface{}) error {
	msgs, err := s.Errors(ctx, obj)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return nil
}

// Validator compiles schema into a document predicate. It satisfies
// core.JSONSchemaValidator.
func Validator(schema interface{}) (func(obj interface{}) (bool, error), error) {
	s, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	return func(obj interface{}) (bool, error) {
		msgs, err := s.Errors(context.Background(), obj)
		if err != nil {
			return false, err
		}
		return len(msgs) == 0, nil
	}, nil
}

var _ core.JSONSchemaValidator = Validator

// Install sets Validator as the $jsonSchema backend of opts
func Install(opts *core.Options) *core.Options {
	opts.JSONSchemaValidator = Validator
	return opts
}
