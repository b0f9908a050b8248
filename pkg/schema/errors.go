package schema

import "errors"

var (
	// ErrInvalidSchema is returned when a schema cannot be compiled
	ErrInvalidSchema = errors.New("invalid JSON schema")

	// ErrValidation wraps the key errors of a failed Validate call
	ErrValidation = errors.New("document does not match schema")
)
