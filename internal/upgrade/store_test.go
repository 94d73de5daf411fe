package upgrade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loam", "state.json")
	store := NewFileStore(path)

	_, ok, err := store.Get("upgrade.last_checked")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("upgrade.last_checked", "1756723200000"))

	value, ok, err := store.Get("upgrade.last_checked")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1756723200000", value)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, NewFileStore(path).Set("k", "v"))

	value, ok, err := NewFileStore(path).Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestFileStoreKeepsOtherKeys(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	require.NoError(t, store.Set("a", "1"))
	require.NoError(t, store.Set("b", "2"))

	value, ok, err := store.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestFileStoreCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{{"), 0644))

	store := NewFileStore(path)

	_, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("k", "v"))
	value, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("k", "v"))

	value, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)
}
