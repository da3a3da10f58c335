// Package ingestion turns source documents into searchable vectors.
//
// The Pipeline type drives one ingestion run over an object store:
//   - Listing unprocessed source objects
//   - Extracting text and splitting it into overlapping chunks
//   - Embedding chunks in batches
//   - Upserting vectors under deterministic identifiers
//   - Archiving each finished document under the processed prefix
//
// Documents are processed independently, optionally fanned out over a worker
// pool. One document's failure is logged and recorded in the ingest ledger
// but never aborts the rest of the run.
package ingestion
