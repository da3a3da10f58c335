package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vector"
)

// WriterConfig holds configuration for the vector store writer.
type WriterConfig struct {
	// Collection is the target collection name.
	Collection string

	// VectorSize is the vector width used when the collection is created.
	VectorSize int

	// Distance is the similarity metric used when the collection is created.
	Distance vector.Distance

	// BatchSize is the number of points written per upsert call.
	BatchSize int

	// Pause is the sleep between upsert batches.
	Pause time.Duration

	// MinSuccessRate is the percentage of points that must be stored for
	// UpsertBatches to count as a success.
	MinSuccessRate float64
}

// DefaultWriterConfig returns a WriterConfig with sensible defaults.
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Collection:     "enterprise-knowledge-base",
		VectorSize:     1536,
		Distance:       vector.DistanceCosine,
		BatchSize:      50,
		Pause:          100 * time.Millisecond,
		MinSuccessRate: 80,
	}
}

// Writer stores embedded chunks in a vector collection.
type Writer struct {
	store  vector.Store
	config *WriterConfig
	logger *slog.Logger
}

// NewWriter creates a writer over the given vector store.
// A nil config uses DefaultWriterConfig.
func NewWriter(store vector.Store, config *WriterConfig) (*Writer, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if config == nil {
		config = DefaultWriterConfig()
	}
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	if config.Distance == "" {
		config.Distance = vector.DistanceCosine
	}

	return &Writer{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "vector-writer"),
	}, nil
}

// Collection returns the collection name the writer targets.
func (w *Writer) Collection() string {
	return w.config.Collection
}

// MinSuccessRate returns the configured success threshold percentage.
func (w *Writer) MinSuccessRate() float64 {
	return w.config.MinSuccessRate
}

// EnsureCollection creates the target collection when it does not already
// exist. Calling it against an existing collection is a no-op.
func (w *Writer) EnsureCollection(ctx context.Context) error {
	names, err := w.store.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing collections: %w", ErrCollectionSetup, err)
	}
	for _, name := range names {
		if name == w.config.Collection {
			return nil
		}
	}

	w.logger.Info("creating vector collection",
		"collection", w.config.Collection,
		"size", w.config.VectorSize,
		"distance", w.config.Distance)

	if err := w.store.CreateCollection(ctx, w.config.Collection, w.config.VectorSize, w.config.Distance); err != nil {
		return fmt.Errorf("%w: creating %q: %w", ErrCollectionSetup, w.config.Collection, err)
	}
	return nil
}

// UpsertBatches writes points in consecutive batches of BatchSize. A failed
// batch is logged and counted and the loop continues with the next one, so
// the returned stats are always complete. When the share of stored points
// ends up below MinSuccessRate the returned error wraps ErrStorageFailure.
func (w *Writer) UpsertBatches(ctx context.Context, points []vector.Point) (core.IngestionStats, error) {
	stats := core.IngestionStats{TotalChunks: len(points)}
	if len(points) == 0 {
		return stats, nil
	}

	totalBatches := (len(points) + w.config.BatchSize - 1) / w.config.BatchSize

	for i := 0; i < len(points); i += w.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.SuccessRate = core.ComputeSuccessRate(stats.StoredVectors, stats.TotalChunks)
			return stats, err
		}

		end := i + w.config.BatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[i:end]
		batchNum := i/w.config.BatchSize + 1

		if err := w.store.Upsert(ctx, w.config.Collection, batch); err != nil {
			w.logger.Error("upsert batch failed",
				"batch", batchNum,
				"totalBatches", totalBatches,
				"points", len(batch),
				"error", err)
			stats.FailedVectors += len(batch)
		} else {
			w.logger.Debug("upsert batch stored",
				"batch", batchNum,
				"totalBatches", totalBatches,
				"points", len(batch))
			stats.StoredVectors += len(batch)
		}
		stats.BatchesProcessed++

		if w.config.Pause > 0 && end < len(points) {
			if err := pause(ctx, w.config.Pause); err != nil {
				stats.SuccessRate = core.ComputeSuccessRate(stats.StoredVectors, stats.TotalChunks)
				return stats, err
			}
		}
	}

	stats.SuccessRate = core.ComputeSuccessRate(stats.StoredVectors, stats.TotalChunks)
	if stats.SuccessRate < w.config.MinSuccessRate {
		return stats, fmt.Errorf("%w: stored %d of %d vectors (%.1f%%)",
			ErrStorageFailure, stats.StoredVectors, stats.TotalChunks, stats.SuccessRate)
	}

	w.logger.Info("vectors stored",
		"collection", w.config.Collection,
		"stored", stats.StoredVectors,
		"failed", stats.FailedVectors,
		"batches", stats.BatchesProcessed,
		"successRate", stats.SuccessRate)
	return stats, nil
}
