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


package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docent/core"
)

// Separators in preference order: paragraph break, line break, sentence
// terminators, clause terminators, single space. The empty string stands for
// the character-window fallback and is never used as a split separator.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ": ", " ", ""}

const (
	// DefaultSize is the default maximum chunk length in characters.
	DefaultSize = 1000
	// DefaultOverlap is the default character span shared by consecutive chunks.
	DefaultOverlap = 200
)

// Chunker splits raw document text into bounded, overlapping chunks along
// natural boundaries. All lengths and offsets are counted in runes, so
// multi-byte text never splits mid-character.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker returns a Chunker producing chunks of at most size characters
// with the given overlap between consecutive chunks. Overlap must be
// non-negative and smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if err := core.ValidateChunkParams(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured maximum chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap span.
func (c *Chunker) Overlap() int { return c.overlap }

// Split breaks text into chunks of at most the configured size, preferring
// the earliest separator present in the text. Every emitted chunk is
// whitespace-trimmed and non-empty; empty or whitespace-only input yields no
// chunks. Overlap is seeded from the untrimmed tail of the closed chunk.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, separators)
}

func (c *Chunker) split(text string, seps []string) []string {
	if utf8.RuneCountInString(text) <= c.size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	for si, sep := range seps {
		if sep == "" || !strings.Contains(text, sep) {
			continue
		}
		return c.merge(strings.Split(text, sep), sep, seps[si+1:])
	}

	return c.windows(text)
}

// merge greedily reconstructs split pieces into chunks, re-appending the
// separator to every piece but the last. When the running chunk would
// overflow it is trimmed and emitted, and the next chunk starts with the
// last overlap characters of the closed (untrimmed) chunk plus the piece
// that overflowed. A seeded chunk that still exceeds the size bound is split
// further along the remaining separators.
func (c *Chunker) merge(splits []string, sep string, rest []string) []string {
	var chunks []string
	current := ""
	currentLen := 0
	sepLen := utf8.RuneCountInString(sep)

	for i, piece := range splits {
		withSep := piece
		pieceLen := utf8.RuneCountInString(piece)
		if i < len(splits)-1 {
			withSep += sep
			pieceLen += sepLen
		}

		if currentLen+pieceLen <= c.size {
			current += withSep
			currentLen += pieceLen
			continue
		}

		if t := strings.TrimSpace(current); t != "" {
			chunks = append(chunks, t)
		}

		if c.overlap > 0 && current != "" {
			tail := tailRunes(current, c.overlap)
			current = tail + withSep
			currentLen = utf8.RuneCountInString(tail) + pieceLen
		} else {
			current = withSep
			currentLen = pieceLen
		}

		if currentLen > c.size {
			chunks = append(chunks, c.split(current, rest)...)
			current = ""
			currentLen = 0
		}
	}

	if t := strings.TrimSpace(current); t != "" {
		chunks = append(chunks, t)
	}
	return chunks
}

// windows slices text into fixed windows of the configured size advancing
// size-overlap characters per step. Last resort when no separator applies.
func (c *Chunker) windows(text string) []string {
	step := c.size - c.overlap
	if step < 1 {
		step = 1
	}

	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		if t := strings.TrimSpace(string(runes[i:end])); t != "" {
			chunks = append(chunks, t)
		}
	}
	return chunks
}

// tailRunes returns the last n runes of s, or s itself when shorter.
func tailRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[len(runes)-n:])
}
