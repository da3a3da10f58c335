// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// Embedded pairs a chunk with its embedding vector.
type Embedded struct {
	Chunk  core.Chunk
	Vector []float32
}

// BatchPolicy controls how the batcher reacts when one embedding batch fails.
type BatchPolicy int

const (
	// SkipFailedBatches logs a failed batch and continues with the next one.
	// Chunks in the failed batch are simply absent from the result.
	SkipFailedBatches BatchPolicy = iota

	// AbortOnFailure stops at the first failed batch and returns its error.
	AbortOnFailure
)

// BatcherConfig holds configuration for the embedding batcher.
type BatcherConfig struct {
	// BatchSize is the number of chunks embedded per request.
	BatchSize int

	// ExpectedDimensions is the vector width every embedding is checked
	// against. A mismatch logs a warning but keeps the vector. Zero
	// disables the check.
	ExpectedDimensions int

	// Policy selects how a failed batch is handled.
	Policy BatchPolicy

	// Pause is an optional fixed sleep between batches, for rate-limited
	// embedding services.
	Pause time.Duration
}

// DefaultBatcherConfig returns a BatcherConfig with sensible defaults.
func DefaultBatcherConfig() *BatcherConfig {
	return &BatcherConfig{
		BatchSize:          20,
		ExpectedDimensions: 1536,
		Policy:             SkipFailedBatches,
	}
}

// Batcher embeds chunks in fixed-size batches.
type Batcher struct {
	embedder ai.Embedder
	config   *BatcherConfig
	tokens   *ai.TokenCounter
	logger   *slog.Logger
}

// NewBatcher creates a batcher over the given embedder.
// A nil config uses DefaultBatcherConfig.
func NewBatcher(embedder ai.Embedder, config *BatcherConfig) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultBatcherConfig()
	}
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}

	return &Batcher{
		embedder: embedder,
		config:   config,
		tokens:   ai.NewTokenCounter(),
		logger:   slog.Default().With("component", "embedding-batcher"),
	}, nil
}

// EmbedChunks embeds chunks in consecutive batches of BatchSize, one
// EmbedTexts call per batch. The result pairs each chunk with its vector in
// input order. Under SkipFailedBatches the chunks of a failed batch are
// dropped from the result; under AbortOnFailure the first failure is
// returned along with the pairs embedded so far.
func (b *Batcher) EmbedChunks(ctx context.Context, chunks []core.Chunk) ([]Embedded, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	totalBatches := (len(chunks) + b.config.BatchSize - 1) / b.config.BatchSize
	pairs := make([]Embedded, 0, len(chunks))

	for i := 0; i < len(chunks); i += b.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return pairs, err
		}

		end := i + b.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]
		batchNum := i/b.config.BatchSize + 1

		texts := make([]string, len(batch))
		tokenCount := 0
		for j, chunk := range batch {
			texts[j] = chunk.Text
			tokenCount += b.tokens.Count(chunk.Text)
		}

		b.logger.Debug("embedding batch",
			"batch", batchNum,
			"totalBatches", totalBatches,
			"chunks", len(batch),
			"tokens", tokenCount)

		vectors, err := b.embedder.EmbedTexts(ctx, texts)
		if err == nil && len(vectors) != len(texts) {
			err = fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
		}
		if err != nil {
			if b.config.Policy == AbortOnFailure {
				return pairs, fmt.Errorf("embedding batch %d/%d failed: %w", batchNum, totalBatches, err)
			}
			b.logger.Error("embedding batch failed, skipping",
				"batch", batchNum,
				"totalBatches", totalBatches,
				"chunks", len(batch),
				"error", err)
			continue
		}

		for j, vector := range vectors {
			if b.config.ExpectedDimensions > 0 && len(vector) != b.config.ExpectedDimensions {
				b.logger.Warn("unexpected embedding dimensions",
					"chunk", batch[j].ID,
					"got", len(vector),
					"want", b.config.ExpectedDimensions)
			}
			pairs = append(pairs, Embedded{Chunk: batch[j], Vector: vector})
		}

		if b.config.Pause > 0 && end < len(chunks) {
			if err := pause(ctx, b.config.Pause); err != nil {
				return pairs, err
			}
		}
	}

	return pairs, nil
}

// pause sleeps for d or until ctx is done, whichever comes first.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
