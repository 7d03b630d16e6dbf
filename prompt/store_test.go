package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "supervisor_prompt.txt"), []byte("You are a supervisor."), 0o644))

	store := NewFileStore(dir)
	text, err := store.Load("supervisor_prompt.txt")
	require.NoError(t, err)
	assert.Equal(t, "You are a supervisor.", text)
}

func TestFileStoreRereadsOnEveryLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "supervisor_prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	store := NewFileStore(dir)
	text, err := store.Load("supervisor_prompt.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", text)

	// Edits take effect without reconstructing the store.
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	text, err = store.Load("supervisor_prompt.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", text)
}

func TestFileStoreStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("inside"), 0o644))

	store := NewFileStore(dir)
	text, err := store.Load("../../../secret.txt")
	require.NoError(t, err)
	assert.Equal(t, "inside", text)
}

func TestFileStoreMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Load("nope.txt")
	assert.Error(t, err)
}

func TestStaticStore(t *testing.T) {
	store := StaticStore{"greeting.txt": "hello"}

	text, err := store.Load("greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = store.Load("missing.txt")
	assert.Error(t, err)
}
