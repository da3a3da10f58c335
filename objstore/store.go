package objstore

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	// Key is the object's slash-separated path within the store,
	// e.g. "source/employee-handbook.pdf".
	Key string

	// Size is the object's length in bytes.
	Size int64

	// LastModified is when the object was last written.
	LastModified time.Time
}

// Store provides access to a flat object namespace with prefix listing,
// the subset of an S3-style API the ingestion pipeline needs.
// Implementations must be thread-safe.
type Store interface {
	// List returns all objects whose key starts with prefix, sorted by key.
	// A missing prefix yields an empty result, not an error.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Get returns the object's content.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes content under key, creating or replacing the object.
	Put(ctx context.Context, key string, data []byte) error

	// Copy duplicates srcKey's content under dstKey.
	// Returns ErrNotFound if srcKey does not exist.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Delete removes the object.
	// Returns ErrNotFound if the key does not exist.
	Delete(ctx context.Context, key string) error
}
