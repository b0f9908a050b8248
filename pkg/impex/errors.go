package impex

import "errors"

var (
	// ErrInvalidDocument is returned when an imported record is not an object
	ErrInvalidDocument = errors.New("invalid document")

	// ErrUnsupportedFormat is returned for unknown import or export formats
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidSpec is returned when a query, pipeline or update cannot be decoded
	ErrInvalidSpec = errors.New("invalid spec")
)
