// Package vector defines the vector store contract used for similarity
// search over document chunks.
//
// The Store interface covers the four operations the ingestion and retrieval
// paths need: listing collections, creating one with a fixed dimensionality
// and metric, upserting points keyed by stable identifiers, and thresholded
// similarity search.
//
// Two implementations exist:
//
//   - vector/qdrant: a REST client for a Qdrant server
//   - vector/memory: a brute-force in-process store for tests and local use
package vector
