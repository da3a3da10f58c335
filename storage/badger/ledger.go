package badger

import (
	"bytes"
	"context"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// IngestLedger implements storage.IngestLedger for BadgerDB. Entries are
// keyed by a monotonic sequence so reverse iteration yields newest first.
type IngestLedger struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.IngestLedger = (*IngestLedger)(nil)

// NewIngestLedger creates a new IngestLedger.
func NewIngestLedger(backend *Backend) (*IngestLedger, error) {
	idSeq, err := backend.GetSequence(ingestLogIDSeq)
	if err != nil {
		return nil, err
	}

	return &IngestLedger{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (l *IngestLedger) Close() error {
	return l.idSeq.Release()
}

// Append records the outcome of one document ingestion.
func (l *IngestLedger) Append(ctx context.Context, record *core.IngestRecord) error {
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now().UTC()
	}

	value, err := storage.MarshalIngestRecord(record)
	if err != nil {
		return err
	}

	seq, err := l.idSeq.Next()
	if err != nil {
		return err
	}

	return l.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeIngestLogKey(seq), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Recent returns ledger entries newest first.
func (l *IngestLedger) Recent(ctx context.Context, limit int) ([]*core.IngestRecord, error) {
	var results []*core.IngestRecord

	err := l.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent entries first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key with the ledger prefix
		startKey := makeIngestLogKey(math.MaxUint64)
		prefix := []byte(ingestLogPrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}

			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var record *core.IngestRecord
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				record, unmarshalErr = storage.UnmarshalIngestRecord(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}
