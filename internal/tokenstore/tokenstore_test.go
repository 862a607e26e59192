package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/pushkit/internal/securestore"
)

func newStore(t *testing.T) (*Store, *securestore.MemoryStore) {
	t.Helper()

	secure := securestore.NewMemoryStore()
	store, err := New(secure)
	require.NoError(t, err)
	return store, secure
}

func TestRecordMappingRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	token, ok, err := store.BackendToken(ctx, "plat-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	require.NoError(t, store.RecordMapping(ctx, "plat-1", "back-1"))

	token, ok, err = store.BackendToken(ctx, "plat-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "back-1", token)

	last, ok, err := store.LastPlatformToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "plat-1", last)

	current, ok, err := store.CurrentBackendToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "back-1", current)
}

func TestClearMapping(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordMapping(ctx, "plat-1", "back-1"))
	require.NoError(t, store.ClearMapping(ctx, "plat-1"))

	_, ok, err := store.BackendToken(ctx, "plat-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing an absent entry is not an error
	require.NoError(t, store.ClearMapping(ctx, "plat-2"))
}

func TestChangedPolicy(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	// No previous value counts as changed
	changed, previous, err := store.Changed(ctx, "plat-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, previous)

	require.NoError(t, store.RecordMapping(ctx, "plat-1", "back-1"))

	changed, previous, err = store.Changed(ctx, "plat-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "plat-1", previous)

	changed, previous, err = store.Changed(ctx, "plat-2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "plat-1", previous)
}

func TestDeleteAll(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	id, err := store.DeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, store.RecordMapping(ctx, "plat-1", "back-1"))

	require.NoError(t, store.DeleteAll(ctx))

	_, ok, err := store.LastPlatformToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.CurrentBackendToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// The installation identifier survives logout
	again, err := store.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestDeviceIDStable(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	first, err := store.DeviceID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := store.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// failingStore fails Set for one specific key, to exercise write ordering.
type failingStore struct {
	securestore.Store
	failKey string
}

func (f *failingStore) Set(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func TestRecordMappingWritesMappingBeforePointer(t *testing.T) {
	secure := securestore.NewMemoryStore()
	store, err := New(&failingStore{Store: secure, failKey: "last_platform_token"})
	require.NoError(t, err)
	ctx := context.Background()

	require.Error(t, store.RecordMapping(ctx, "plat-1", "back-1"))

	// The mapping entry landed, the pointer did not: never the reverse
	raw, err := secure.Get(ctx, "token_mappings")
	require.NoError(t, err)
	mappings := map[string]string{}
	require.NoError(t, json.Unmarshal([]byte(raw), &mappings))
	assert.Equal(t, "back-1", mappings["plat-1"])

	_, err = secure.Get(ctx, "last_platform_token")
	require.ErrorIs(t, err, securestore.ErrNotFound)
}
