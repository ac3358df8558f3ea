package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/ports"
)

func seedGraph(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store := Open("test")

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "pin"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "tag"})
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Create(ctx, "note", nil, ports.CreateOptions{ID: id})
		require.NoError(t, err)
	}
	return store
}

func TestEdgeIndex_BucketsPerEndpoint(t *testing.T) {
	ctx := context.Background()
	store := seedGraph(t)

	_, err := store.Perform(ctx, "pin", "a", "b", nil, ports.PerformOptions{})
	require.NoError(t, err)
	_, err = store.Perform(ctx, "tag", "a", "c", nil, ports.PerformOptions{})
	require.NoError(t, err)
	_, err = store.Perform(ctx, "pin", "b", "c", nil, ports.PerformOptions{})
	require.NoError(t, err)

	// Each endpoint owns only its own verb buckets; a verbless lookup
	// never visits another thing's entries.
	assert.Len(t, store.bySubject["a"], 2)
	assert.Len(t, store.bySubject["b"], 1)
	assert.NotContains(t, store.bySubject, "c")
	assert.Len(t, store.byObject["c"], 2)
	assert.NotContains(t, store.byObject, "a")

	out, err := store.Edges(ctx, "a", "", ports.DirectionOut)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	in, err := store.Edges(ctx, "c", "", ports.DirectionIn)
	require.NoError(t, err)
	assert.Len(t, in, 2)
}

func TestEdgeIndex_PurgePrunesEmptyBuckets(t *testing.T) {
	ctx := context.Background()
	store := seedGraph(t)

	_, err := store.Perform(ctx, "pin", "a", "b", nil, ports.PerformOptions{ID: "x"})
	require.NoError(t, err)

	purged, err := store.Purge(ctx, "x")
	require.NoError(t, err)
	assert.True(t, purged)

	assert.Empty(t, store.bySubject)
	assert.Empty(t, store.byObject)

	out, err := store.Edges(ctx, "a", "", ports.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, out)
}
