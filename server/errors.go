package server

import "errors"

var (
	// ErrAskerRequired is returned when an asker is not provided.
	ErrAskerRequired = errors.New("asker required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")
)
