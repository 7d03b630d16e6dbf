// Package prompt loads system-instruction templates from an external prompt
// store. The content is opaque to the core: it is substituted into reasoning
// service requests without interpretation.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store resolves a prompt template by filename.
type Store interface {
	Load(name string) (string, error)
}

// FileStore reads prompt files from a directory on every load so prompt
// edits take effect without a restart.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load implements Store.
func (s *FileStore) Load(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	return string(data), nil
}

// StaticStore serves prompts from an in-memory map. Intended for tests and
// embedded defaults.
type StaticStore map[string]string

// Load implements Store.
func (s StaticStore) Load(name string) (string, error) {
	text, ok := s[name]
	if !ok {
		return "", fmt.Errorf("load prompt %q: not found", name)
	}
	return text, nil
}
