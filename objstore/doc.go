// Package objstore abstracts the document landing zone.
//
// The ingestion pipeline reads raw documents from an object store under a
// source prefix and archives them under a processed prefix once their
// vectors are safely stored. The Store interface captures the small
// S3-style surface that flow needs: prefix listing, reads, writes, copies,
// and deletes. FSStore implements it over a local directory tree.
package objstore
