package vector

import (
	"context"

	"github.com/poiesic/docent/core"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	// DistanceCosine measures the cosine of the angle between vectors.
	DistanceCosine Distance = "Cosine"
	// DistanceEuclid measures straight-line distance.
	DistanceEuclid Distance = "Euclid"
	// DistanceDot measures the raw dot product.
	DistanceDot Distance = "Dot"
)

// Point is one vector record ready for upsert. The ID must be stable across
// runs for identical input so that re-ingestion replaces rather than
// duplicates records.
type Point struct {
	ID      string
	Vector  []float32
	Payload core.VectorPayload
}

// ScoredPoint is one similarity search hit.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload core.VectorPayload
}

// Store provides access to a vector database.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// ListCollections returns the names of all existing collections.
	ListCollections(ctx context.Context) ([]string, error)

	// CreateCollection creates a collection with the given vector size and
	// distance metric. Creating a collection that already exists with the
	// same schema is a no-op.
	CreateCollection(ctx context.Context, name string, size int, distance Distance) error

	// Upsert inserts or replaces points in the collection, keyed by point ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to limit points most similar to the query vector,
	// ordered by descending score. Points scoring below scoreThreshold are
	// excluded. An empty result is valid and signals no sufficiently
	// relevant match.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]ScoredPoint, error)

	// Close releases resources held by the store.
	Close() error
}
