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


// Package storage provides the local storage abstraction layer for docent.
//
// Vectors live in the vector store; everything else a running knowledge
// base accumulates locally goes through interfaces defined here:
//
//   - AnswerCache: generated answers keyed by question digest, with TTL
//   - HistoryStore: per-conversation message transcripts
//   - IngestLedger: append-only record of document ingestion outcomes
//
// The badger subpackage backs the cache and ledger with BadgerDB; the
// sqlite subpackage backs conversation history with SQLite. Constructors
// in those packages return the interfaces defined here so consumers never
// couple to a specific backend.
//
// Stored values are serialized as JSON via the Marshal*/Unmarshal* helpers
// in this package. Decode failures wrap ErrSerializationFailed.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
