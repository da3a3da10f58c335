package ingestion

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docent/core"
)

// DefaultMinChunkLength is the minimum trimmed chunk length kept for
// embedding. Shorter fragments carry too little signal to retrieve.
const DefaultMinChunkLength = 20

// errorMarkers are placeholder strings an extraction step may emit in place
// of real content. Chunks carrying one must never reach the vector store.
var errorMarkers = []string{
	"Text extraction failed",
	"No text could be extracted",
}

// FilterChunks drops chunks whose trimmed text is shorter than minLength
// runes or that carry a known extraction error marker. Surviving chunks keep
// their original ordinal indices so identifiers stay stable regardless of
// what was filtered around them.
func FilterChunks(chunks []core.Chunk, minLength int) []core.Chunk {
	kept := make([]core.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk.Text)
		if utf8.RuneCountInString(trimmed) < minLength {
			continue
		}
		if hasErrorMarker(trimmed) {
			continue
		}
		kept = append(kept, chunk)
	}
	return kept
}

func hasErrorMarker(text string) bool {
	for _, marker := range errorMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
