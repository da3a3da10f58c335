// Package chunk splits extracted document text into bounded, overlapping
// chunks and derives the stable identifier each chunk is stored under.
//
// Splitting prefers natural boundaries: paragraph breaks first, then line
// breaks, sentence terminators, clause terminators, and single spaces, with
// fixed character windows as the last resort. Consecutive chunks share a
// configurable overlap so context survives the split boundary.
//
// Identifiers are derived from (sanitized source filename, ordinal index,
// leading 50 characters of text), which makes re-ingestion of unchanged
// content idempotent: the vector store overwrites rather than duplicates.
package chunk
