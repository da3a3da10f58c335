package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/chunk"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/objstore"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/vector"
)

// archiveTag separates a processed object's stem from its archive timestamp.
const archiveTag = "_processed_"

// Pipeline ingests source documents into the vector collection. Each run
// lists unprocessed objects, then takes every document through extract,
// chunk, filter, embed, and upsert, and finally archives it under the
// processed prefix. Documents are isolated: one document's failure never
// aborts the others.
type Pipeline struct {
	objects   objstore.Store
	extractor extract.Extractor
	embedder  ai.Embedder
	vectors   vector.Store
	ledger    storage.IngestLedger

	chunker *chunk.Chunker
	batcher *Batcher
	writer  *Writer
	pool    *ants.Pool

	batcherConfig   *BatcherConfig
	writerConfig    *WriterConfig
	sourcePrefix    string
	processedPrefix string
	minChunkLength  int
	embeddingModel  string
	progress        io.Writer
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunking sets the chunk size and overlap, both in characters.
// Defaults are chunk.DefaultSize and chunk.DefaultOverlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		chunker, err := chunk.NewChunker(size, overlap)
		if err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithMinChunkLength sets the minimum trimmed chunk length kept for
// embedding. Default is DefaultMinChunkLength.
func WithMinChunkLength(length int) Option {
	return func(p *Pipeline) error {
		if length < 0 {
			length = 0
		}
		p.minChunkLength = length
		return nil
	}
}

// WithPrefixes sets the source and processed object key prefixes.
// Defaults are "source/" and "processed/".
func WithPrefixes(source, processed string) Option {
	return func(p *Pipeline) error {
		if source != "" {
			p.sourcePrefix = source
		}
		if processed != "" {
			p.processedPrefix = processed
		}
		return nil
	}
}

// WithBatcherConfig replaces the embedding batcher configuration.
func WithBatcherConfig(config *BatcherConfig) Option {
	return func(p *Pipeline) error {
		if config != nil {
			p.batcherConfig = config
		}
		return nil
	}
}

// WithWriterConfig replaces the vector writer configuration.
func WithWriterConfig(config *WriterConfig) Option {
	return func(p *Pipeline) error {
		if config != nil {
			p.writerConfig = config
		}
		return nil
	}
}

// WithCollection sets the target collection name.
func WithCollection(name string) Option {
	return func(p *Pipeline) error {
		if name != "" {
			p.writerConfig.Collection = name
		}
		return nil
	}
}

// WithEmbeddingModel records the embedding model name in every stored
// vector payload.
func WithEmbeddingModel(model string) Option {
	return func(p *Pipeline) error {
		p.embeddingModel = model
		return nil
	}
}

// WithWorkers sets how many documents are processed concurrently.
// Default is 1. Concurrent upserts are safe because chunk identifiers are
// deterministic, so replays overwrite rather than duplicate.
func WithWorkers(workers int) Option {
	return func(p *Pipeline) error {
		if workers < 1 {
			workers = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(workers)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLedger records one entry per document in the given ledger.
func WithLedger(ledger storage.IngestLedger) Option {
	return func(p *Pipeline) error {
		p.ledger = ledger
		return nil
	}
}

// WithProgress writes a document-level progress line to w during Run,
// typically os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the given collaborators.
func NewPipeline(
	objects objstore.Store,
	extractor extract.Extractor,
	embedder ai.Embedder,
	vectors vector.Store,
	opts ...Option,
) (*Pipeline, error) {
	if objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	chunker, err := chunk.NewChunker(chunk.DefaultSize, chunk.DefaultOverlap)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		objects:         objects,
		extractor:       extractor,
		embedder:        embedder,
		vectors:         vectors,
		chunker:         chunker,
		pool:            pool,
		batcherConfig:   DefaultBatcherConfig(),
		writerConfig:    DefaultWriterConfig(),
		sourcePrefix:    "source/",
		processedPrefix: "processed/",
		minChunkLength:  DefaultMinChunkLength,
		logger:          slog.Default().With("component", "ingestion-pipeline"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Build stages after options are applied so they get final config.
	batcher, err := NewBatcher(embedder, p.batcherConfig)
	if err != nil {
		p.Release()
		return nil, err
	}
	writer, err := NewWriter(vectors, p.writerConfig)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.batcher = batcher
	p.writer = writer

	return p, nil
}

// Release frees the pipeline's worker pool. The pipeline must not be used
// after Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// RunStats aggregates the outcome of one pipeline run.
type RunStats struct {
	DocumentsListed    int // candidates found under the source prefix
	DocumentsSkipped   int // unsupported or already processed
	DocumentsProcessed int // ingested and archived
	DocumentsFailed    int
	TotalChunks        int
	StoredVectors      int
	FailedVectors      int
	Elapsed            time.Duration
}

// outcome is the result of processing a single document.
type outcome struct {
	sourceKey  string
	archiveKey string
	stats      core.IngestionStats
	err        error
}

// Run ingests every unprocessed document under the source prefix. Errors
// scoped to a single document are recorded in the returned stats and the
// ledger; only listing failures, collection setup failures, and context
// cancellation abort the run itself.
func (p *Pipeline) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()

	candidates, skipped, err := p.listCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing source objects: %w", err)
	}

	stats := &RunStats{
		DocumentsListed:  len(candidates),
		DocumentsSkipped: skipped,
	}

	p.logger.Info("ingestion run starting",
		"candidates", len(candidates),
		"skipped", skipped,
		"collection", p.writer.Collection())

	if len(candidates) == 0 {
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	if err := p.writer.EnsureCollection(ctx); err != nil {
		stats.Elapsed = time.Since(start)
		return stats, err
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(candidates))
		tracker.Start()
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	fold := func(o outcome) {
		p.record(ctx, o)
		mu.Lock()
		if o.err != nil {
			stats.DocumentsFailed++
		} else {
			stats.DocumentsProcessed++
		}
		stats.TotalChunks += o.stats.TotalChunks
		stats.StoredVectors += o.stats.StoredVectors
		stats.FailedVectors += o.stats.FailedVectors
		mu.Unlock()
		if tracker != nil {
			tracker.Increment(o.err != nil)
		}
	}

	for _, obj := range candidates {
		obj := obj
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			fold(p.processDocument(ctx, obj))
		})
		if submitErr != nil {
			wg.Done()
			fold(outcome{
				sourceKey: obj.Key,
				err:       fmt.Errorf("submitting document: %w", submitErr),
			})
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}

	stats.Elapsed = time.Since(start)
	p.logger.Info("ingestion run complete",
		"processed", stats.DocumentsProcessed,
		"failed", stats.DocumentsFailed,
		"skipped", stats.DocumentsSkipped,
		"storedVectors", stats.StoredVectors,
		"failedVectors", stats.FailedVectors,
		"elapsed", stats.Elapsed)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// listCandidates returns the source objects to ingest, skipping keys the
// extractor does not support and keys whose stem already appears under the
// processed prefix.
func (p *Pipeline) listCandidates(ctx context.Context) ([]objstore.ObjectInfo, int, error) {
	objects, err := p.objects.List(ctx, p.sourcePrefix)
	if err != nil {
		return nil, 0, err
	}

	processed, err := p.objects.List(ctx, p.processedPrefix)
	if err != nil {
		return nil, 0, err
	}
	done := make(map[string]bool, len(processed))
	for _, obj := range processed {
		done[archiveStem(obj.Key)] = true
	}

	var candidates []objstore.ObjectInfo
	skipped := 0
	for _, obj := range objects {
		if obj.Key == p.sourcePrefix {
			continue
		}
		if !p.extractor.Supports(obj.Key) {
			p.logger.Debug("skipping unsupported object", "key", obj.Key)
			skipped++
			continue
		}
		if done[sourceStem(obj.Key)] {
			p.logger.Debug("skipping already processed object", "key", obj.Key)
			skipped++
			continue
		}
		candidates = append(candidates, obj)
	}
	return candidates, skipped, nil
}

// processDocument runs one document through extract, chunk, filter, embed,
// upsert, and archive. All failures are scoped to the document.
func (p *Pipeline) processDocument(ctx context.Context, obj objstore.ObjectInfo) outcome {
	logger := p.logger.With("source", obj.Key)

	data, err := p.objects.Get(ctx, obj.Key)
	if err != nil {
		logger.Error("reading object failed", "error", err)
		return outcome{sourceKey: obj.Key, err: fmt.Errorf("reading object: %w", err)}
	}

	doc, err := p.extractor.Extract(ctx, obj.Key, data)
	if err != nil {
		logger.Error("text extraction failed", "error", err)
		return outcome{sourceKey: obj.Key, err: fmt.Errorf("extracting text: %w", err)}
	}
	doc.Size = obj.Size
	doc.LastModified = obj.LastModified

	chunks := p.makeChunks(doc)
	filtered := FilterChunks(chunks, p.minChunkLength)
	logger.Debug("document chunked",
		"bytes", doc.Size,
		"chunks", len(chunks),
		"kept", len(filtered),
		"pages", len(doc.Pages))

	if len(filtered) == 0 {
		// Nothing embeddable will ever come of this document; archive it so
		// it stops showing up as a candidate.
		logger.Warn("no chunks above minimum length", "chunks", len(chunks))
		archiveKey, archiveErr := p.archive(ctx, obj.Key)
		return outcome{sourceKey: obj.Key, archiveKey: archiveKey, err: archiveErr}
	}

	embedded, err := p.batcher.EmbedChunks(ctx, filtered)
	if err != nil {
		return outcome{
			sourceKey: obj.Key,
			stats:     core.IngestionStats{TotalChunks: len(filtered), FailedVectors: len(filtered)},
			err:       fmt.Errorf("embedding chunks: %w", err),
		}
	}

	writerStats, err := p.writer.UpsertBatches(ctx, p.buildPoints(doc, embedded, len(chunks)))

	stats := core.IngestionStats{
		TotalChunks:      len(filtered),
		StoredVectors:    writerStats.StoredVectors,
		FailedVectors:    writerStats.FailedVectors + (len(filtered) - len(embedded)),
		BatchesProcessed: writerStats.BatchesProcessed,
	}
	stats.SuccessRate = core.ComputeSuccessRate(stats.StoredVectors, stats.TotalChunks)

	if err != nil {
		return outcome{sourceKey: obj.Key, stats: stats, err: err}
	}

	// The writer gates on the points it received; embedding failures lower
	// the document-level rate further, so check it again here.
	if stats.SuccessRate < p.writer.MinSuccessRate() {
		return outcome{
			sourceKey: obj.Key,
			stats:     stats,
			err: fmt.Errorf("%w: stored %d of %d vectors (%.1f%%)",
				ErrStorageFailure, stats.StoredVectors, stats.TotalChunks, stats.SuccessRate),
		}
	}

	archiveKey, err := p.archive(ctx, obj.Key)
	if err != nil {
		logger.Error("archiving failed", "error", err)
		return outcome{sourceKey: obj.Key, stats: stats, err: err}
	}

	logger.Info("document ingested",
		"chunks", stats.TotalChunks,
		"stored", stats.StoredVectors,
		"successRate", stats.SuccessRate,
		"archive", archiveKey)
	return outcome{sourceKey: obj.Key, archiveKey: archiveKey, stats: stats}
}

// makeChunks splits the document text and attaches per-chunk metadata.
// Page numbers are estimated from the chunk's position: chunk boundaries are
// not tracked against page boundaries, so the estimate assumes chunks are
// spread evenly across pages.
func (p *Pipeline) makeChunks(doc *core.Document) []core.Chunk {
	pieces := p.chunker.Split(doc.Text)
	totalPages := len(doc.Pages)

	chunks := make([]core.Chunk, len(pieces))
	for i, text := range pieces {
		c := core.Chunk{
			ID:         chunk.DeriveID(doc.SourceKey, i, text),
			Text:       text,
			Index:      i,
			SourceKey:  doc.SourceKey,
			TotalPages: totalPages,
		}
		if totalPages > 0 {
			c.Page = estimatePage(i, len(pieces), totalPages)
		}
		chunks[i] = c
	}
	return chunks
}

// estimatePage maps a chunk ordinal onto a 1-based page number, clamped to
// the document's page count.
func estimatePage(index, totalChunks, totalPages int) int {
	page := index*totalPages/totalChunks + 1
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page
}

// buildPoints pairs embedded chunks with their stored payloads. totalChunks
// is the pre-filter chunk count of the document.
func (p *Pipeline) buildPoints(doc *core.Document, embedded []Embedded, totalChunks int) []vector.Point {
	filename := path.Base(doc.SourceKey)
	points := make([]vector.Point, len(embedded))
	for i, e := range embedded {
		points[i] = vector.Point{
			ID:     e.Chunk.ID,
			Vector: e.Vector,
			Payload: core.VectorPayload{
				Source:         doc.SourceKey,
				Filename:       filename,
				Text:           e.Chunk.Text,
				ChunkIndex:     e.Chunk.Index,
				CharacterCount: utf8.RuneCountInString(e.Chunk.Text),
				TotalChunks:    totalChunks,
				EmbeddingModel: p.embeddingModel,
				Page:           e.Chunk.Page,
				TotalPages:     e.Chunk.TotalPages,
			},
		}
	}
	return points
}

// archive copies the source object under the processed prefix with a
// timestamped name, then deletes the original. A failed delete leaves the
// copy in place; the stem dedupe keeps the leftover source from being
// re-ingested on the next run.
func (p *Pipeline) archive(ctx context.Context, key string) (string, error) {
	dst := p.archiveKeyFor(key, time.Now().UTC())
	if err := p.objects.Copy(ctx, key, dst); err != nil {
		return "", fmt.Errorf("archiving to %s: %w", dst, err)
	}
	if err := p.objects.Delete(ctx, key); err != nil {
		p.logger.Error("deleting archived source failed", "key", key, "error", err)
	}
	return dst, nil
}

// archiveKeyFor builds "processed/<stem>_processed_<YYYYMMDD_HHMMSS><ext>".
func (p *Pipeline) archiveKeyFor(key string, now time.Time) string {
	base := path.Base(key)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return p.processedPrefix + stem + archiveTag + now.Format("20060102_150405") + ext
}

// record appends the document outcome to the ledger, when one is configured.
// The write survives run cancellation so completed documents are never lost.
func (p *Pipeline) record(ctx context.Context, o outcome) {
	if p.ledger == nil {
		return
	}

	record := &core.IngestRecord{
		SourceKey:   o.sourceKey,
		ArchiveKey:  o.archiveKey,
		Status:      core.IngestSucceeded,
		Chunks:      o.stats.TotalChunks,
		Stored:      o.stats.StoredVectors,
		SuccessRate: o.stats.SuccessRate,
	}
	if o.err != nil {
		record.Status = core.IngestFailed
		record.Error = o.err.Error()
	}

	if err := p.ledger.Append(context.WithoutCancel(ctx), record); err != nil {
		p.logger.Error("recording ingest outcome failed", "source", o.sourceKey, "error", err)
	}
}

// sourceStem returns the base filename without its extension.
func sourceStem(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

// archiveStem additionally strips the "_processed_<timestamp>" suffix an
// archived copy carries, so "handbook_processed_20250102_030405" matches a
// source object named "handbook".
func archiveStem(key string) string {
	stem := sourceStem(key)
	if i := strings.LastIndex(stem, archiveTag); i >= 0 {
		stem = stem[:i]
	}
	return stem
}
