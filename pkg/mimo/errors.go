package mimo

import "errors"

var (
	// ErrDocumentNotFound is returned when no document matches a filter
	ErrDocumentNotFound = errors.New("document not found")

	// ErrCollectionNotFound is returned when a collection does not exist
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists is returned by CreateCollection for a taken name
	ErrCollectionExists = errors.New("collection already exists")

	// ErrDuplicateKey is returned when an inserted id is already present
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrImmutableID is returned by updates that target the id field
	ErrImmutableID = errors.New("the id field is immutable")
)
