package ingestion

import "errors"

var (
	// ErrObjectStoreRequired is returned when an object store is not provided.
	ErrObjectStoreRequired = errors.New("object store required")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorStoreRequired is returned when a vector store is not provided.
	ErrVectorStoreRequired = errors.New("vector store required")

	// ErrCollectionSetup is returned when the vector collection cannot be
	// listed or created. It is fatal to the whole run, not just one document.
	ErrCollectionSetup = errors.New("vector collection setup failed")

	// ErrStorageFailure is returned when the share of vectors actually stored
	// for a document falls below the writer's minimum success rate.
	ErrStorageFailure = errors.New("vector storage below minimum success rate")
)
