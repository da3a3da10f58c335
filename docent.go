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


package docent

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/answer"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/objstore"
	"github.com/poiesic/docent/server"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/poiesic/docent/storage/sqlite"
	"github.com/poiesic/docent/vector"
	"github.com/poiesic/docent/vector/memory"
	"github.com/poiesic/docent/vector/qdrant"
)

// KnowledgeBase bundles every component of a running knowledge base: the
// document store, local state (answer cache, ingest ledger, conversation
// history), the vector store, and the AI provider. It is the entry point
// for embedding docent in another program.
type KnowledgeBase struct {
	cfg       *config.Config
	objects   objstore.Store
	extractor extract.Extractor
	backend   *badger.Backend
	cache     storage.AnswerCache
	ledger    storage.IngestLedger
	history   storage.HistoryStore
	vectors   vector.Store
	provider  ai.AIProvider
	logger    *slog.Logger
}

// KnowledgeBaseOption configures Open.
type KnowledgeBaseOption func(*knowledgeBaseOptions)

type knowledgeBaseOptions struct {
	provider ai.AIProvider
	vectors  vector.Store
}

// WithProvider substitutes the AI provider instead of building one from the
// configuration. The knowledge base takes ownership and closes it.
func WithProvider(provider ai.AIProvider) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.provider = provider
	}
}

// WithVectorStore substitutes the vector store instead of building one from
// the configuration. The knowledge base takes ownership and closes it.
func WithVectorStore(store vector.Store) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.vectors = store
	}
}

// Open assembles a knowledge base from the configuration. A nil cfg uses
// config.Default(). Everything Open creates is released by Close.
func Open(cfg *config.Config, opts ...KnowledgeBaseOption) (*KnowledgeBase, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	// Apply options
	options := &knowledgeBaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	dataDir, err := cfg.EffectiveDataDir()
	if err != nil {
		return nil, err
	}
	objectsDir, err := cfg.EffectiveObjectsDir()
	if err != nil {
		return nil, err
	}

	// Open document store
	objects, err := objstore.NewFSStore(objectsDir)
	if err != nil {
		return nil, err
	}

	// Open local state backend
	backend, err := badger.OpenBackend(filepath.Join(dataDir, "state"), false)
	if err != nil {
		return nil, err
	}

	cache := badger.NewAnswerCache(backend)

	ledger, err := badger.NewIngestLedger(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Open conversation history
	history, err := sqlite.NewHistoryStore(filepath.Join(dataDir, "history.db"))
	if err != nil {
		ledger.Close()
		backend.Close()
		return nil, err
	}

	// Connect the vector store
	vectors := options.vectors
	if vectors == nil {
		vectors, err = openVectorStore(cfg)
		if err != nil {
			history.Close()
			ledger.Close()
			backend.Close()
			return nil, err
		}
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(aiConfig(cfg))
		if err != nil {
			vectors.Close()
			history.Close()
			ledger.Close()
			backend.Close()
			return nil, err
		}
	}

	return &KnowledgeBase{
		cfg:       cfg,
		objects:   objects,
		extractor: extract.NewPlainText(),
		backend:   backend,
		cache:     cache,
		ledger:    ledger,
		history:   history,
		vectors:   vectors,
		provider:  provider,
		logger:    slog.Default(),
	}, nil
}

// Close releases every component in reverse construction order.
func (kb *KnowledgeBase) Close() error {
	// Close AI provider first
	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing AI provider", "err", err)
	}

	if err := kb.vectors.Close(); err != nil {
		kb.logger.Error("error closing vector store", "err", err)
		return err
	}
	if err := kb.history.Close(); err != nil {
		kb.logger.Error("error closing history store", "err", err)
		return err
	}
	if err := kb.ledger.Close(); err != nil {
		kb.logger.Error("error closing ingest ledger", "err", err)
		return err
	}
	if err := kb.cache.Close(); err != nil {
		kb.logger.Error("error closing answer cache", "err", err)
		return err
	}

	// Close backend
	if err := kb.backend.Close(); err != nil {
		kb.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (kb *KnowledgeBase) Config() *config.Config {
	return kb.cfg
}

func (kb *KnowledgeBase) Objects() objstore.Store {
	return kb.objects
}

func (kb *KnowledgeBase) Cache() storage.AnswerCache {
	return kb.cache
}

func (kb *KnowledgeBase) Ledger() storage.IngestLedger {
	return kb.ledger
}

func (kb *KnowledgeBase) History() storage.HistoryStore {
	return kb.history
}

func (kb *KnowledgeBase) Vectors() vector.Store {
	return kb.vectors
}

// NewPipeline creates an ingestion pipeline wired to the knowledge base's
// stores. Configuration-derived options come first, so callers can override
// any of them.
func (kb *KnowledgeBase) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithChunking(kb.cfg.Ingest.ChunkSize, kb.cfg.Ingest.ChunkOverlap),
		ingestion.WithMinChunkLength(kb.cfg.Ingest.MinChunkLength),
		ingestion.WithPrefixes(kb.cfg.Objects.SourcePrefix, kb.cfg.Objects.ProcessedPrefix),
		ingestion.WithBatcherConfig(&ingestion.BatcherConfig{
			BatchSize:          kb.cfg.Ingest.EmbedBatchSize,
			ExpectedDimensions: kb.cfg.AI.EmbeddingDimensions,
		}),
		ingestion.WithWriterConfig(&ingestion.WriterConfig{
			Collection:     kb.cfg.Vector.Collection,
			VectorSize:     kb.cfg.AI.EmbeddingDimensions,
			Distance:       vector.DistanceCosine,
			BatchSize:      kb.cfg.Ingest.UpsertBatchSize,
			Pause:          time.Duration(kb.cfg.Ingest.UpsertPauseMs) * time.Millisecond,
			MinSuccessRate: kb.cfg.Ingest.MinSuccessRate,
		}),
		ingestion.WithWorkers(kb.cfg.Ingest.Workers),
		ingestion.WithEmbeddingModel(kb.cfg.AI.EmbeddingModel),
		ingestion.WithLedger(kb.ledger),
	}
	return ingestion.NewPipeline(kb.objects, kb.extractor, kb.provider.Embedder(), kb.vectors,
		append(base, opts...)...)
}

// NewAnswerer creates an answerer wired to the knowledge base's stores.
// Configuration-derived options come first, so callers can override any of
// them.
func (kb *KnowledgeBase) NewAnswerer(opts ...answer.Option) (*answer.Answerer, error) {
	retriever, err := answer.NewRetriever(
		kb.provider.Embedder(),
		kb.vectors,
		kb.cfg.Vector.Collection,
		answer.WithLimit(kb.cfg.Answer.RetrievalLimit),
		answer.WithScoreThreshold(float32(kb.cfg.Answer.ScoreThreshold)),
	)
	if err != nil {
		return nil, err
	}

	base := []answer.Option{
		answer.WithCache(kb.cache),
		answer.WithHistory(kb.history),
		answer.WithCacheTTL(time.Duration(kb.cfg.Answer.CacheTTLSecs) * time.Second),
		answer.WithHistoryWindow(kb.cfg.Answer.HistoryWindow),
		answer.WithContextTokenBudget(kb.cfg.Answer.ContextTokens),
	}
	return answer.NewAnswerer(retriever, kb.provider.Completer(), append(base, opts...)...)
}

// NewServer creates an HTTP chat server backed by a fresh answerer.
func (kb *KnowledgeBase) NewServer(opts ...server.Option) (*server.Server, error) {
	answerer, err := kb.NewAnswerer()
	if err != nil {
		return nil, err
	}
	return server.New(answerer, kb.vectors, opts...)
}

// openVectorStore builds the configured vector store implementation.
// "memory" keeps everything in-process and is lost on exit; it exists for
// tests and experiments.
func openVectorStore(cfg *config.Config) (vector.Store, error) {
	switch cfg.Vector.Type {
	case "memory":
		return memory.NewStore(), nil
	case "", "qdrant":
		return qdrant.NewClient(qdrant.Config{
			URL:        cfg.Vector.URL,
			APIKey:     cfg.Vector.APIKey,
			Timeout:    time.Duration(cfg.Vector.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Vector.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Vector.Type)
	}
}

// aiConfig maps file configuration onto the AI service configuration,
// leaving service defaults in place for anything the file left unset.
func aiConfig(cfg *config.Config) *ai.Config {
	var opts []ai.ConfigOption
	if cfg.AI.Host != "" {
		opts = append(opts, ai.WithHost(cfg.AI.Host))
	}
	if cfg.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(cfg.AI.EmbeddingHost))
	}
	if cfg.AI.CompletionHost != "" {
		opts = append(opts, ai.WithCompletionHost(cfg.AI.CompletionHost))
	}
	if cfg.AI.APIKey != "" {
		opts = append(opts, ai.WithAPIKey(cfg.AI.APIKey))
	}
	if cfg.AI.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(cfg.AI.EmbeddingModel))
	}
	if cfg.AI.EmbeddingDimensions > 0 {
		opts = append(opts, ai.WithEmbeddingDimensions(cfg.AI.EmbeddingDimensions))
	}
	if len(cfg.AI.CompletionModels) > 0 {
		opts = append(opts, ai.WithCompletionModels(cfg.AI.CompletionModels...))
	}
	if cfg.AI.Temperature > 0 {
		opts = append(opts, ai.WithTemperature(cfg.AI.Temperature))
	}
	if cfg.AI.MaxTokens > 0 {
		opts = append(opts, ai.WithMaxTokens(cfg.AI.MaxTokens))
	}
	return ai.NewConfig(opts...)
}
