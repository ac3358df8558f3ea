package memblob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/infrastructure/blob/memblob"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()

	require.NoError(t, store.Put(ctx, "wal/test/1.json", []byte("a")))
	require.NoError(t, store.Put(ctx, "wal/test/2.json", []byte("b")))
	require.NoError(t, store.Put(ctx, "snapshots/test/latest.json", []byte("c")))
	assert.Equal(t, 3, store.Len())

	data, err := store.Get(ctx, "wal/test/1.json")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	_, err = store.Get(ctx, "wal/test/9.json")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	keys, err := store.List(ctx, "wal/test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"wal/test/1.json", "wal/test/2.json"}, keys)

	require.NoError(t, store.Delete(ctx, []string{"wal/test/1.json", "missing"}))
	assert.Equal(t, 2, store.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()

	require.NoError(t, store.Put(ctx, "k", []byte("abc")))
	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
