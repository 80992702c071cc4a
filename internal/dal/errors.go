package dal

import "errors"

// Sentinel errors shared by all store implementations. Handlers translate
// these into HTTP status codes in one place.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned by Insert when the key is taken.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrCASMismatch is returned by Replace when the document changed
	// since it was read. Callers treat this as a write conflict.
	ErrCASMismatch = errors.New("document modified concurrently")

	// ErrValidation is wrapped by models when a required field is missing
	// or a reference does not resolve to the expected document.
	ErrValidation = errors.New("validation failed")
)
