package checkpoint_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/funcps/internal/checkpoint"
	"github.com/funvibe/funcps/internal/runtime"
	"github.com/funvibe/funcps/internal/value"
)

func openStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	call := &runtime.Call{FuncName: "f_step2", Args: []value.Object{&value.Int{Value: 9}}}

	require.NoError(t, store.Save(ctx, "ckpt-1", "f", call))

	loaded, _, ok, err := store.Load(ctx, "ckpt-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, call.FuncName, loaded.FuncName)
	require.Len(t, loaded.Args, 1)
	assert.True(t, value.Equal(call.Args[0], loaded.Args[0]))
}

func TestStoreLoadMissingReturnsFalse(t *testing.T) {
	store := openStore(t)
	_, _, ok, err := store.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreSaveOverwritesExistingID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	first := &runtime.Call{FuncName: "f_step1", Args: []value.Object{&value.Int{Value: 1}}}
	second := &runtime.Call{FuncName: "f_step2", Args: []value.Object{&value.Int{Value: 2}}}

	require.NoError(t, store.Save(ctx, "ckpt-1", "f", first))
	require.NoError(t, store.Save(ctx, "ckpt-1", "f", second))

	loaded, _, ok, err := store.Load(ctx, "ckpt-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f_step2", loaded.FuncName)
}

func TestStoreDeleteRemovesCheckpoint(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ckpt-1", "f", &runtime.Call{FuncName: "f_step1"}))

	require.NoError(t, store.Delete(ctx, "ckpt-1"))

	_, _, ok, err := store.Load(ctx, "ckpt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreListFiltersByFuncName(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "a1", "f", &runtime.Call{FuncName: "f_step1"}))
	require.NoError(t, store.Save(ctx, "a2", "f", &runtime.Call{FuncName: "f_step1"}))
	require.NoError(t, store.Save(ctx, "b1", "g", &runtime.Call{FuncName: "g_step1"}))

	fListing, err := store.List(ctx, "f")
	require.NoError(t, err)
	assert.Len(t, fListing, 2)
	for _, l := range fListing {
		assert.Equal(t, "f", l.FuncName)
	}

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStoreSaveBatchPersistsAllEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	entries := []checkpoint.BatchEntry{
		{ID: "b1", Call: &runtime.Call{FuncName: "f_step1", Args: []value.Object{&value.Int{Value: 1}}}},
		{ID: "b2", Call: &runtime.Call{FuncName: "f_step1", Args: []value.Object{&value.Int{Value: 2}}}},
		{ID: "b3", Call: &runtime.Call{FuncName: "f_step1", Args: []value.Object{&value.Int{Value: 3}}}},
	}

	require.NoError(t, store.SaveBatch(ctx, "f", entries))

	listing, err := store.List(ctx, "f")
	require.NoError(t, err)
	assert.Len(t, listing, 3)
}
