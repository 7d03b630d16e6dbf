package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hupe1980/concierge/core"
)

// safeSegment matches conversation IDs usable directly as directory names.
var safeSegment = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStore persists one JSON document per conversation under
// <dir>/<conversationID>/state.json. Writes go through a temp file plus
// rename so a crash never leaves a torn document behind.
type FileStore struct {
	dir string
}

var _ core.StateStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StoreError{Op: "init", Err: err}
	}
	return &FileStore{dir: dir}, nil
}

// Load implements core.StateStore; a missing file yields a freshly
// initialized empty state.
func (s *FileStore) Load(conversationID string) (*core.ConversationState, error) {
	data, err := os.ReadFile(s.statePath(conversationID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.NewConversationState(conversationID), nil
		}
		return nil, &StoreError{Op: "load", ConversationID: conversationID, Err: err}
	}
	var st core.ConversationState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &StoreError{Op: "load", ConversationID: conversationID, Err: err}
	}
	return &st, nil
}

// Save implements core.StateStore.
func (s *FileStore) Save(st *core.ConversationState) error {
	path := s.statePath(st.ConversationID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StoreError{Op: "save", ConversationID: st.ConversationID, Err: err}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return &StoreError{Op: "save", ConversationID: st.ConversationID, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &StoreError{Op: "save", ConversationID: st.ConversationID, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &StoreError{Op: "save", ConversationID: st.ConversationID, Err: err}
	}
	return nil
}

// statePath derives the document path deterministically from the
// conversation ID. IDs unsafe as path segments are hashed.
func (s *FileStore) statePath(conversationID string) string {
	segment := conversationID
	if !safeSegment.MatchString(segment) {
		sum := sha256.Sum256([]byte(conversationID))
		segment = hex.EncodeToString(sum[:16])
	}
	return filepath.Join(s.dir, segment, "state.json")
}
