// Package state provides conversation state store implementations: a
// volatile in-memory store for tests and demos, a file store writing one
// JSON document per conversation, and (in the sqlite subpackage) a durable
// SQLite-backed store.
package state

import "fmt"

// StoreError wraps a failed load or save against a state backend. Callers
// surface it as a generic failure response; a failed save means the turn's
// effects are lost from the caller's perspective.
type StoreError struct {
	Op             string // "load" or "save"
	ConversationID string
	Err            error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("state store %s failed for conversation %s: %v", e.Op, e.ConversationID, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *StoreError) Unwrap() error { return e.Err }
