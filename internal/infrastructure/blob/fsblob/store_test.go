package fsblob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/infrastructure/blob/fsblob"
)

func TestNew_EmptyDir(t *testing.T) {
	_, err := fsblob.New("")
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := fsblob.New(t.TempDir())
	require.NoError(t, err)

	key := "snapshots/test/latest.json"
	require.NoError(t, store.Put(ctx, key, []byte(`{"version":1}`)))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(data))

	// Overwrite replaces
	require.NoError(t, store.Put(ctx, key, []byte(`{"version":2}`)))
	data, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(data))
}

func TestGet_Missing(t *testing.T) {
	store, err := fsblob.New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "wal/test/1.json")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestList_PrefixAndTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := fsblob.New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "wal/test/1.json", []byte("a")))
	require.NoError(t, store.Put(ctx, "wal/test/2.json", []byte("b")))
	require.NoError(t, store.Put(ctx, "wal/other/3.json", []byte("c")))
	require.NoError(t, store.Put(ctx, "snapshots/test/latest.json", []byte("d")))

	// A leftover temp file from an interrupted write is never listed
	leftover := filepath.Join(dir, "wal", "test", ".blob-dead.tmp")
	require.NoError(t, os.WriteFile(leftover, []byte("junk"), 0o644))

	keys, err := store.List(ctx, "wal/test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"wal/test/1.json", "wal/test/2.json"}, keys)

	keys, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 4)
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, err := fsblob.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "wal/test/1.json", []byte("a")))
	require.NoError(t, store.Delete(ctx, []string{"wal/test/1.json", "wal/test/missing.json"}))

	_, err = store.Get(ctx, "wal/test/1.json")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}
