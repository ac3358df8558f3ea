package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/ports"
	"github.com/graftdb/graft/internal/infrastructure/store/memory"
	"github.com/graftdb/graft/internal/storetest"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store {
		return memory.Open("test")
	})
}

func TestNamespaceIsolation(t *testing.T) {
	// Two handles never share state
	ctx := context.Background()
	a := memory.Open("a")
	b := memory.Open("b")

	_, err := a.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)

	nouns, err := b.ListNouns(ctx)
	require.NoError(t, err)
	assert.Empty(t, nouns)
	assert.Equal(t, "a", a.Namespace())
	assert.Equal(t, "b", b.Namespace())
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.Open("test")

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	thing, err := store.Create(ctx, "note", map[string]any{"title": "x"}, ports.CreateOptions{})
	require.NoError(t, err)

	// Mutating the returned map must not leak into the store
	thing.Data["title"] = "hacked"

	got, err := store.Get(ctx, thing.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Data["title"])
}

func TestReturnedValuesAreCopies_Nested(t *testing.T) {
	ctx := context.Background()
	store := memory.Open("test")

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	thing, err := store.Create(ctx, "note", map[string]any{
		"meta": map[string]any{"author": "alice"},
		"tags": []any{"a", "b"},
	}, ports.CreateOptions{})
	require.NoError(t, err)

	// Nested maps and slices must not alias store state either
	thing.Data["meta"].(map[string]any)["author"] = "mallory"
	thing.Data["tags"].([]any)[0] = "hacked"

	got, err := store.Get(ctx, thing.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Data["meta"].(map[string]any)["author"])
	assert.Equal(t, "a", got.Data["tags"].([]any)[0])

	// And the input map stays the caller's own
	input := map[string]any{"meta": map[string]any{"author": "bob"}}
	second, err := store.Create(ctx, "note", input, ports.CreateOptions{})
	require.NoError(t, err)
	input["meta"].(map[string]any)["author"] = "eve"

	got, err = store.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Data["meta"].(map[string]any)["author"])
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := memory.Open("test")

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "touch"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				thing, err := store.Create(ctx, "note", map[string]any{"j": float64(j)}, ports.CreateOptions{})
				assert.NoError(t, err)
				_, err = store.Perform(ctx, "touch", thing.ID, "", nil, ports.PerformOptions{})
				assert.NoError(t, err)
				_, err = store.List(ctx, "note", ports.ListOptions{Limit: 10})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	page, err := store.List(ctx, "note", ports.ListOptions{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 400, page.Total)
}
