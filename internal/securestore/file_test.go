package securestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "device_id")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "device_id", "abc-123"))

	value, err := store.Get(ctx, "device_id")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", value)

	require.NoError(t, store.Delete(ctx, "device_id"))
	_, err = store.Get(ctx, "device_id")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent key is not an error
	require.NoError(t, store.Delete(ctx, "device_id"))
}

func TestFileStoreOverwrite(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "one"))
	require.NoError(t, store.Set(ctx, "k", "two"))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", value)
}

func TestFileStoreSecurePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))

	info, err := os.Stat(filepath.Join(dir, "k"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Reads refuse files someone else could read
	require.NoError(t, os.Chmod(filepath.Join(dir, "k"), 0644))
	_, err = store.Get(ctx, "k")
	require.Error(t, err)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`, "."} {
		require.Error(t, store.Set(ctx, key, "v"), "key %q", key)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "k", "v"))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}
