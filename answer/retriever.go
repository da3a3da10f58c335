package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vector"
)

const (
	// DefaultCollection matches the collection the ingestion side writes to.
	DefaultCollection = "enterprise-knowledge-base"

	// DefaultLimit is how many snippets a question retrieves.
	DefaultLimit = 3

	// MaxLimit caps the retrieval limit regardless of configuration.
	MaxLimit = 10

	// DefaultScoreThreshold is the minimum similarity score for a snippet
	// to count as relevant context.
	DefaultScoreThreshold = 0.7
)

// Retriever embeds a question and finds the stored snippets most similar to
// it. An empty result is valid and means the knowledge base holds nothing
// relevant enough to answer from.
type Retriever struct {
	embedder   ai.Embedder
	store      vector.Store
	collection string
	limit      int
	threshold  float32
	logger     *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever) error

// WithLimit sets how many snippets each question retrieves.
// Values are clamped to [1, MaxLimit]. Default is DefaultLimit.
func WithLimit(limit int) RetrieverOption {
	return func(r *Retriever) error {
		if limit < 1 {
			limit = 1
		}
		if limit > MaxLimit {
			limit = MaxLimit
		}
		r.limit = limit
		return nil
	}
}

// WithScoreThreshold sets the minimum similarity score for retrieved
// snippets. Must be within [0, 1]. Default is DefaultScoreThreshold.
func WithScoreThreshold(threshold float32) RetrieverOption {
	return func(r *Retriever) error {
		if threshold < 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		r.threshold = threshold
		return nil
	}
}

// NewRetriever creates a retriever over an embedder and a vector store.
// An empty collection name falls back to DefaultCollection.
func NewRetriever(embedder ai.Embedder, store vector.Store, collection string, opts ...RetrieverOption) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if collection == "" {
		collection = DefaultCollection
	}

	r := &Retriever{
		embedder:   embedder,
		store:      store,
		collection: collection,
		limit:      DefaultLimit,
		threshold:  DefaultScoreThreshold,
		logger:     slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Collection returns the name of the collection the retriever searches.
func (r *Retriever) Collection() string {
	return r.collection
}

// Retrieve returns up to the configured limit of snippets most similar to
// the question, ordered by descending score. Results always score at or
// above the configured threshold.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]core.ScoredSource, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	embedding, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		r.logger.Error("error embedding question", "question", question, "err", err)
		return nil, fmt.Errorf("%w: embedding question: %w", ErrRetrieval, err)
	}

	hits, err := r.store.Search(ctx, r.collection, embedding, r.limit, r.threshold)
	if err != nil {
		r.logger.Error("error searching vector store", "collection", r.collection, "err", err)
		return nil, fmt.Errorf("%w: searching %q: %w", ErrRetrieval, r.collection, err)
	}

	sources := make([]core.ScoredSource, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < r.threshold {
			continue
		}
		source := hit.Payload.Source
		if source == "" {
			source = "unknown"
		}
		sources = append(sources, core.ScoredSource{
			Text:   hit.Payload.Text,
			Source: source,
			Page:   hit.Payload.Page,
			Score:  hit.Score,
		})
	}

	r.logger.Debug("retrieved context", "collection", r.collection, "hits", len(sources))
	return sources, nil
}
