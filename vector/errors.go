package vector

import "errors"

var (
	// ErrInvalidDimension is returned when a collection is created with a
	// non-positive vector size.
	ErrInvalidDimension = errors.New("vector dimension must be greater than 0")

	// ErrDimensionMismatch is returned when an upserted vector's width does
	// not match the collection's configured size.
	ErrDimensionMismatch = errors.New("vector dimension does not match collection size")

	// ErrCollectionNotFound is returned when an operation targets a
	// collection that does not exist.
	ErrCollectionNotFound = errors.New("collection not found")
)
