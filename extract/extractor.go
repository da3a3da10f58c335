package extract

import (
	"context"

	"github.com/poiesic/docent/core"
)

// Extractor converts a raw stored object into a Document.
// Implementations must be thread-safe.
type Extractor interface {
	// Supports reports whether this extractor handles the given object key,
	// typically by file extension. The ingestion pipeline only lists objects
	// its extractor supports.
	Supports(key string) bool

	// Extract parses the object's raw bytes into a Document. The returned
	// document carries the combined text and, when the format is paginated,
	// per-page segments. An extraction failure is scoped to one document;
	// callers log it and continue with the next.
	Extract(ctx context.Context, key string, data []byte) (*core.Document, error)
}
