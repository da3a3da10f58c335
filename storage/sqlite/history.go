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


package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT    NOT NULL,
	timestamp       INTEGER NOT NULL,
	role            TEXT    NOT NULL,
	content         TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_conversation
	ON chat_history (conversation_id, timestamp, id);
`

// HistoryStore implements storage.HistoryStore on SQLite. Transcripts are
// append-only; ordering is by timestamp with the insertion id as tiebreaker,
// so two messages stamped in the same instant still read back in the order
// they were appended.
type HistoryStore struct {
	db   *sql.DB
	path string
}

var _ storage.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore opens (or creates) the history database at path.
// Parent directories are created as needed.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if path == "" {
		return nil, fmt.Errorf("history store: path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	// WAL keeps readers unblocked during appends; the busy timeout covers
	// short write contention instead of surfacing SQLITE_BUSY.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &HistoryStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *HistoryStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// AppendMessages appends messages to a conversation's transcript.
// Messages with a zero Timestamp are stamped with the current time. All
// messages are validated and written in one transaction: either the whole
// exchange lands or none of it does.
func (s *HistoryStore) AppendMessages(ctx context.Context, conversationID string, messages ...core.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range messages {
		messages[i].ConversationID = conversationID
		if messages[i].Timestamp.IsZero() {
			messages[i].Timestamp = now
		}
		if err := core.ValidateChatMessage(&messages[i]); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback()

	for _, msg := range messages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_history (conversation_id, timestamp, role, content)
			VALUES (?, ?, ?, ?)
		`, msg.ConversationID, msg.Timestamp.UnixNano(), string(msg.Role), msg.Content)
		if err != nil {
			return fmt.Errorf("inserting history message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history transaction: %w", err)
	}
	return nil
}

// History returns messages for a conversation ordered oldest first.
// A positive limit windows to the most recent limit messages; zero or
// negative returns the full transcript.
func (s *HistoryStore) History(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", storage.ErrInvalidQuery)
	}

	query := `
		SELECT conversation_id, timestamp, role, content
		FROM chat_history
		WHERE conversation_id = ?
		ORDER BY timestamp, id
	`
	args := []any{conversationID}
	if limit > 0 {
		// Window to the most recent messages, then flip back to
		// chronological order.
		query = `
			SELECT conversation_id, timestamp, role, content FROM (
				SELECT id, conversation_id, timestamp, role, content
				FROM chat_history
				WHERE conversation_id = ?
				ORDER BY timestamp DESC, id DESC
				LIMIT ?
			) ORDER BY timestamp, id
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var messages []core.ChatMessage
	for rows.Next() {
		var msg core.ChatMessage
		var ts int64
		var role string
		if err := rows.Scan(&msg.ConversationID, &ts, &role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scanning history message: %w", err)
		}
		msg.Timestamp = time.Unix(0, ts).UTC()
		msg.Role = core.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}

	return messages, nil
}
