package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/docent/vector"
)

// Store is an in-process vector store using brute-force cosine similarity.
// It is intended for tests and small local corpora; everything lives in
// memory and is lost on exit.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	size     int
	distance vector.Distance
	points   map[string]vector.Point
}

// NewStore creates an empty in-memory store.
// Note: Returns concrete type so tests can use Count for assertions.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// ListCollections returns the names of all collections, sorted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// CreateCollection creates a collection. Re-creating an existing collection
// with the same schema is a no-op; a schema mismatch is an error.
func (s *Store) CreateCollection(ctx context.Context, name string, size int, distance vector.Distance) error {
	if size <= 0 {
		return vector.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[name]; ok {
		if existing.size != size || existing.distance != distance {
			return fmt.Errorf("collection %q already exists with different schema", name)
		}
		return nil
	}
	s.collections[name] = &collection{
		size:     size,
		distance: distance,
		points:   make(map[string]vector.Point),
	}
	return nil
}

// Upsert inserts or replaces points keyed by ID.
func (s *Store) Upsert(ctx context.Context, name string, points []vector.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return vector.ErrCollectionNotFound
	}
	for _, p := range points {
		if len(p.Vector) != col.size {
			return vector.ErrDimensionMismatch
		}
	}
	for _, p := range points {
		col.points[p.ID] = p
	}
	return nil
}

// Search scans every point and returns the top matches by cosine similarity.
func (s *Store) Search(ctx context.Context, name string, vec []float32, limit int, scoreThreshold float32) ([]vector.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, vector.ErrCollectionNotFound
	}
	if limit <= 0 {
		limit = 5
	}

	scored := make([]vector.ScoredPoint, 0, len(col.points))
	for _, p := range col.points {
		score := cosine(vec, p.Vector)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		scored = append(scored, vector.ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
	}

	// Descending score; ties broken by ID so results are deterministic.
	slices.SortFunc(scored, func(a, b vector.ScoredPoint) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.ID, b.ID)
		}
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Count returns the number of points in a collection, for test assertions.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return 0
	}
	return len(col.points)
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
