package document

import "errors"

var (
	// ErrCycleDetected is returned when a self-referencing value is cloned or encoded
	ErrCycleDetected = errors.New("cycle detected while processing object/array")

	// ErrMismatchedTypes is returned when merging values that are not both arrays or both objects
	ErrMismatchedTypes = errors.New("mismatched types: must both be array or object")

	// ErrInvalidObjectID is returned for a malformed ObjectID hex string
	ErrInvalidObjectID = errors.New("invalid ObjectID")
)
