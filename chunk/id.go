package chunk

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// idPrefixLen is how many leading characters of chunk text participate in
// the identifier digest.
const idPrefixLen = 50

// DeriveID returns the stable identifier for a chunk: an MD5 digest over the
// sanitized source filename, the ordinal index, and the first 50 characters
// of the chunk text, rendered as a DNS-namespaced UUIDv5 of the hex digest.
// Identical inputs always yield the identical ID, so re-ingesting unchanged
// content overwrites records instead of duplicating them.
func DeriveID(sourceKey string, index int, text string) string {
	prefix := text
	if runes := []rune(text); len(runes) > idPrefixLen {
		prefix = string(runes[:idPrefixLen])
	}

	name := SanitizeSourceName(path.Base(sourceKey))
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d-%s", name, index, prefix)))
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(hex.EncodeToString(sum[:]))).String()
}

// SanitizeSourceName replaces every non-alphanumeric character in name
// with '-'.
func SanitizeSourceName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
