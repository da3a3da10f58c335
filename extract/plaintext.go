package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docent/core"
)

// Ensure PlainText implements the interface.
var _ Extractor = (*PlainText)(nil)

// PlainText extracts UTF-8 text and markdown documents. A form feed ('\f')
// acts as a page separator, mirroring how paginated formats carry page
// boundaries; without one the document is treated as unpaginated.
type PlainText struct {
	logger *slog.Logger
}

// NewPlainText creates a plain-text extractor.
func NewPlainText() *PlainText {
	return &PlainText{
		logger: slog.Default().With("component", "extract-plaintext"),
	}
}

// Supports reports whether the key has a plain-text extension.
func (p *PlainText) Supports(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".txt", ".text", ".md", ".markdown":
		return true
	default:
		return false
	}
}

// Extract parses the raw bytes into a Document. Page numbers are 1-based
// positions in the form-feed split; blank pages keep their number but are
// dropped from the page list, and the combined text joins the surviving
// pages with a blank line.
func (p *PlainText) Extract(ctx context.Context, key string, data []byte) (*core.Document, error) {
	if !p.Supports(key) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, key)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, key)
	}

	text := string(data)
	var pages []core.Page
	combined := text

	if strings.Contains(text, "\f") {
		segments := strings.Split(text, "\f")
		parts := make([]string, 0, len(segments))
		for i, segment := range segments {
			if strings.TrimSpace(segment) == "" {
				continue
			}
			pages = append(pages, core.Page{
				Number:         i + 1,
				Text:           segment,
				CharacterCount: utf8.RuneCountInString(segment),
			})
			parts = append(parts, segment)
		}
		combined = strings.Join(parts, "\n\n")
	}

	combined = strings.TrimSpace(combined)
	if combined == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, key)
	}

	p.logger.Debug("extracted document",
		"key", key,
		"characters", utf8.RuneCountInString(combined),
		"pages", len(pages))

	return &core.Document{
		SourceKey: key,
		Text:      combined,
		Pages:     pages,
	}, nil
}
