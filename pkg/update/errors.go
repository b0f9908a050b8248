package update

import "errors"

var (
	// ErrNonNumeric is returned when a numeric operator meets a field that
	// holds a non-numeric value
	ErrNonNumeric = errors.New("cannot apply a numeric update to a non-numeric value")

	// ErrInvalidIdentifier is returned for a malformed array filter
	// identifier in a selector
	ErrInvalidIdentifier = errors.New("array filter identifier must begin with a lowercase letter and contain only alphanumeric characters")

	// ErrNotArray is returned when an array operator meets a field that is
	// not an array
	ErrNotArray = errors.New("cannot apply an array update to a non-array value")
)
