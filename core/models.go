package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// KeyFromText derives a deterministic storage key from text using BLAKE2b
// hashing. Identical text always produces the identical key, which is what
// makes answer caching by question content work.
func KeyFromText(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Page is one page of an extracted document.
type Page struct {
	Number         int
	Text           string
	CharacterCount int
}

// Document is the extracted form of one source object. It is produced by an
// extract.Extractor and never mutated afterwards: chunking consumes it once.
type Document struct {
	SourceKey    string // object key the text came from
	Text         string // full extracted text
	Pages        []Page // optional page segmentation, in order
	Size         int64  // source object size in bytes
	LastModified time.Time
}

// Chunk is a bounded contiguous substring of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	ID         string // deterministic identifier, see chunk.DeriveID
	Text       string
	Index      int    // ordinal position within the source document
	SourceKey  string // back-reference to the originating object
	Page       int    // estimated page number, 0 when unknown
	TotalPages int    // 0 when the document carries no page segmentation
}

// VectorPayload is the metadata stored alongside each vector. The field set
// is fixed; Page and TotalPages are omitted from the JSON shape when unknown.
type VectorPayload struct {
	Source         string `json:"source"`
	Filename       string `json:"filename"`
	Text           string `json:"text"`
	ChunkIndex     int    `json:"chunk_index"`
	CharacterCount int    `json:"character_count"`
	TotalChunks    int    `json:"total_chunks"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Page           int    `json:"page,omitempty"`
	TotalPages     int    `json:"total_pages,omitempty"`
}

// ScoredSource is one retrieval result: a stored snippet with its source
// reference and similarity score.
type ScoredSource struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"` // 0 when unknown
	Score  float32 `json:"score"`
}

// IngestionStats aggregates the outcome of storing one document's vectors.
type IngestionStats struct {
	TotalChunks      int
	StoredVectors    int
	FailedVectors    int
	BatchesProcessed int
	SuccessRate      float64 // percentage, 0 when TotalChunks is 0
}

// ComputeSuccessRate returns stored/total as a percentage.
// A total of zero yields 0, not a division error.
func ComputeSuccessRate(stored, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(stored) / float64(total) * 100
}

// IngestStatus classifies the outcome of one document ingestion.
type IngestStatus string

const (
	// IngestSucceeded means the document's vectors met the success threshold.
	IngestSucceeded IngestStatus = "succeeded"
	// IngestFailed means extraction, embedding, or storage broke the run
	// for this document.
	IngestFailed IngestStatus = "failed"
)

// IngestRecord is one ledger entry describing the outcome of ingesting a
// single source document.
type IngestRecord struct {
	SourceKey   string       `json:"source_key"`
	ArchiveKey  string       `json:"archive_key,omitempty"`
	Status      IngestStatus `json:"status"`
	Chunks      int          `json:"chunks"`
	Stored      int          `json:"stored"`
	SuccessRate float64      `json:"success_rate"`
	Error       string       `json:"error,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser is a human question.
	RoleUser Role = "user"
	// RoleAssistant is a model answer.
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in a conversation's append-only history.
type ChatMessage struct {
	ConversationID string
	Timestamp      time.Time
	Role           Role
	Content        string
}

// CachedAnswer is a previously generated answer stored by question key.
type CachedAnswer struct {
	Text      string         `json:"text"`
	Sources   []ScoredSource `json:"sources,omitempty"`
	Model     string         `json:"model,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Answer is the result of one question, whether freshly generated or served
// from cache.
type Answer struct {
	Text           string
	Sources        []ScoredSource
	ConversationID string
	Model          string
	Cached         bool
	ProcessingTime time.Duration
}
