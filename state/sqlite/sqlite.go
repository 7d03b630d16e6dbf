// Package sqlite provides a durable conversation state store backed by an
// SQLite database. One row per conversation holds the serialized state
// document; WAL mode is enabled for concurrent readers.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/state"
	_ "modernc.org/sqlite"
)

// Store persists conversation state in SQLite.
type Store struct {
	conn *sql.DB
	path string
}

var _ core.StateStore = (*Store)(nil)

// Open opens (or creates) the database at path, creating parent directories
// and applying the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create conversations table: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.conn.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Load implements core.StateStore; a missing row yields a freshly
// initialized empty state.
func (s *Store) Load(conversationID string) (*core.ConversationState, error) {
	var doc string
	err := s.conn.QueryRow(
		"SELECT state FROM conversations WHERE id = ?", conversationID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewConversationState(conversationID), nil
	}
	if err != nil {
		return nil, &state.StoreError{Op: "load", ConversationID: conversationID, Err: err}
	}
	var st core.ConversationState
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, &state.StoreError{Op: "load", ConversationID: conversationID, Err: err}
	}
	return &st, nil
}

// Save implements core.StateStore via upsert.
func (s *Store) Save(st *core.ConversationState) error {
	doc, err := json.Marshal(st)
	if err != nil {
		return &state.StoreError{Op: "save", ConversationID: st.ConversationID, Err: err}
	}
	_, err = s.conn.Exec(`
		INSERT INTO conversations (id, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP
	`, st.ConversationID, string(doc))
	if err != nil {
		return &state.StoreError{Op: "save", ConversationID: st.ConversationID, Err: err}
	}
	return nil
}
