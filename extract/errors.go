package extract

import "errors"

var (
	// ErrNoText is returned when a document yields no extractable text.
	ErrNoText = errors.New("no text could be extracted")

	// ErrInvalidEncoding is returned when the raw bytes are not valid UTF-8.
	ErrInvalidEncoding = errors.New("document is not valid UTF-8")

	// ErrUnsupported is returned for object keys the extractor does not handle.
	ErrUnsupported = errors.New("unsupported document type")
)
