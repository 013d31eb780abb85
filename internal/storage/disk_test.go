package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ganot/cronograma-mcp/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)
	require.DirExists(t, dir)

	path, err := store.Save("req-1", "Cronograma - Alpha - 2025-03-14.xlsx", []byte("xlsx"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(store.Dir(), "req-1.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "xlsx", string(data))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not linger")

	require.NoError(t, store.Remove(path))
	require.NoFileExists(t, path)
	require.NoError(t, store.Remove(path))
}

func TestDiskStore_SameFilenameDifferentKeys(t *testing.T) {
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save("req-a", "same.xlsx", []byte("a"))
	require.NoError(t, err)
	b, err := store.Save("req-b", "same.xlsx", []byte("b"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDiskStore_RejectsEscapingKeys(t *testing.T) {
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../evil", "a/b", ".hidden"} {
		_, err := store.Save(key, "x.xlsx", []byte("x"))
		require.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
	require.ErrorIs(t, store.Remove("/etc/passwd"), storage.ErrInvalidKey)
}

func TestDiskStore_Check(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Check())

	require.NoError(t, os.RemoveAll(dir))
	require.Error(t, store.Check())
}

func TestNewDiskStore_RequiresDir(t *testing.T) {
	_, err := storage.NewDiskStore("  ")
	require.Error(t, err)
}
