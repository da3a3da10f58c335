package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// AnswerCache implements storage.AnswerCache for BadgerDB.
// Expiry is delegated to BadgerDB's native entry TTL; expired entries
// surface as storage.ErrNotFound on Get.
type AnswerCache struct {
	backend *Backend
}

var _ storage.AnswerCache = (*AnswerCache)(nil)

// NewAnswerCache creates a new AnswerCache.
func NewAnswerCache(backend *Backend) *AnswerCache {
	return &AnswerCache{
		backend: backend,
	}
}

// Get retrieves the cached answer for a key.
func (c *AnswerCache) Get(ctx context.Context, key string) (*core.CachedAnswer, error) {
	var answer *core.CachedAnswer
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeAnswerCacheKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			answer, unmarshalErr = storage.UnmarshalCachedAnswer(val)
			return unmarshalErr
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return answer, nil
}

// Put stores an answer under key for the given TTL.
func (c *AnswerCache) Put(ctx context.Context, key string, answer *core.CachedAnswer, ttl time.Duration) error {
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now().UTC()
	}

	value, err := storage.MarshalCachedAnswer(answer)
	if err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeAnswerCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close releases cache resources. The underlying backend is shared and
// closed by its owner.
func (c *AnswerCache) Close() error {
	return nil
}
