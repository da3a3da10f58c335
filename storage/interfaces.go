package storage

import (
	"context"
	"time"

	"github.com/poiesic/docent/core"
)

// AnswerCache stores generated answers keyed by a digest of the question so
// repeated questions skip retrieval and completion entirely.
// Implementations must be safe for concurrent use.
type AnswerCache interface {
	// Get retrieves the cached answer for a key.
	// Returns ErrNotFound if the key is absent or the entry has expired.
	Get(ctx context.Context, key string) (*core.CachedAnswer, error)

	// Put stores an answer under key. A positive ttl bounds the entry's
	// lifetime; zero or negative stores it without expiry.
	Put(ctx context.Context, key string, answer *core.CachedAnswer, ttl time.Duration) error

	// Close releases cache resources.
	Close() error
}

// HistoryStore persists conversation transcripts.
type HistoryStore interface {
	// AppendMessages appends messages to a conversation's transcript.
	// Messages with a zero Timestamp are stamped with the current time.
	AppendMessages(ctx context.Context, conversationID string, messages ...core.ChatMessage) error

	// History returns messages for a conversation ordered oldest first.
	// A positive limit windows to the most recent limit messages; zero or
	// negative returns the full transcript. An unknown conversation yields
	// an empty slice, not an error.
	History(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error)

	// Close releases store resources.
	Close() error
}

// IngestLedger records the outcome of every document ingestion attempt so
// operators can audit what made it into the knowledge base.
type IngestLedger interface {
	// Append records the outcome of one document ingestion.
	// A zero CompletedAt is stamped with the current time.
	Append(ctx context.Context, record *core.IngestRecord) error

	// Recent returns ledger entries newest first. A positive limit caps the
	// result; zero or negative returns everything.
	Recent(ctx context.Context, limit int) ([]*core.IngestRecord, error)

	// Close releases ledger resources.
	Close() error
}
