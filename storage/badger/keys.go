package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	answerCachePrefix = "anscache"
	ingestLogPrefix   = "inglog"
	ingestLogIDSeq    = "inglogseq"
)

// makeAnswerCacheKey generates a key for a cached answer by its digest.
func makeAnswerCacheKey(digest string) []byte {
	return []byte(fmt.Sprintf("%s:%s", answerCachePrefix, digest))
}

// makeIngestLogKey generates a composite key for a ledger entry.
// Format: prefix:seq
func makeIngestLogKey(seq uint64) []byte {
	prefix := ingestLogPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for the sequence number
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}
