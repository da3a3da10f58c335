package objstore

import "errors"

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for keys that are absolute or escape the
	// store's root.
	ErrInvalidKey = errors.New("invalid object key")
)
