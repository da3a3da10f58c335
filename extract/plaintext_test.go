package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextSupports(t *testing.T) {
	extractor := NewPlainText()

	tests := []struct {
		key  string
		want bool
	}{
		{"source/handbook.txt", true},
		{"source/notes.md", true},
		{"source/notes.markdown", true},
		{"source/legacy.text", true},
		{"source/UPPER.TXT", true},
		{"source/report.pdf", false},
		{"source/archive.tar.gz", false},
		{"source/noextension", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.Supports(tt.key))
		})
	}
}

func TestPlainTextExtract(t *testing.T) {
	extractor := NewPlainText()
	ctx := context.Background()

	t.Run("unpaginated document", func(t *testing.T) {
		doc, err := extractor.Extract(ctx, "source/notes.txt", []byte("  Hello world.\nSecond line.  \n"))
		require.NoError(t, err)

		assert.Equal(t, "source/notes.txt", doc.SourceKey)
		assert.Equal(t, "Hello world.\nSecond line.", doc.Text)
		assert.Nil(t, doc.Pages)
	})

	t.Run("form feed pagination", func(t *testing.T) {
		raw := "First page text.\f\n   \f Third page text. "
		doc, err := extractor.Extract(ctx, "source/paged.txt", []byte(raw))
		require.NoError(t, err)

		require.Len(t, doc.Pages, 2)
		assert.Equal(t, 1, doc.Pages[0].Number)
		assert.Equal(t, "First page text.", doc.Pages[0].Text)
		// Blank middle page keeps its slot in the numbering.
		assert.Equal(t, 3, doc.Pages[1].Number)
		assert.Equal(t, " Third page text. ", doc.Pages[1].Text)

		assert.Equal(t, "First page text.\n\n Third page text.", doc.Text)
	})

	t.Run("character counts are rune based", func(t *testing.T) {
		raw := "héllo wörld\fsecond"
		doc, err := extractor.Extract(ctx, "source/unicode.txt", []byte(raw))
		require.NoError(t, err)

		require.Len(t, doc.Pages, 2)
		assert.Equal(t, 11, doc.Pages[0].CharacterCount)
		assert.Equal(t, 6, doc.Pages[1].CharacterCount)
	})

	t.Run("whitespace only document", func(t *testing.T) {
		_, err := extractor.Extract(ctx, "source/empty.txt", []byte("   \n\t  "))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoText)
	})

	t.Run("all pages blank", func(t *testing.T) {
		_, err := extractor.Extract(ctx, "source/blank.txt", []byte(" \f \f "))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoText)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := extractor.Extract(ctx, "source/binary.txt", []byte{0xff, 0xfe, 0x00, 0x41})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := extractor.Extract(ctx, "source/image.png", []byte("data"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}
