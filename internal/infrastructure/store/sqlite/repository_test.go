package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
	"github.com/graftdb/graft/internal/infrastructure/store/sqlite"
	"github.com/graftdb/graft/internal/storetest"
)

func openRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "graft.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store {
		return openRepo(t)
	})
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := sqlite.Open("", "test")
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graft.db")

	repo, err := sqlite.Open(path, "test")
	require.NoError(t, err)
	_, err = repo.DefineNoun(ctx, ports.NounSpec{
		Name:   "note",
		Schema: map[string]entities.FieldDef{"title": {Type: entities.FieldString}},
	})
	require.NoError(t, err)
	_, err = repo.DefineVerb(ctx, ports.VerbSpec{Name: "pin"})
	require.NoError(t, err)
	thing, err := repo.Create(ctx, "note", map[string]any{"title": "x"}, ports.CreateOptions{})
	require.NoError(t, err)
	action, err := repo.Perform(ctx, "pin", thing.ID, "", nil, ports.PerformOptions{})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := sqlite.Open(path, "test")
	require.NoError(t, err)
	defer reopened.Close()

	noun, err := reopened.GetNoun(ctx, "note")
	require.NoError(t, err)
	require.NotNil(t, noun)
	assert.Equal(t, "notes", noun.Plural)
	assert.Contains(t, noun.Schema, "title")

	got, err := reopened.Get(ctx, thing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "x", got.Data["title"])
	assert.Equal(t, thing.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())

	gotAction, err := reopened.GetAction(ctx, action.ID)
	require.NoError(t, err)
	require.NotNil(t, gotAction)
	assert.Equal(t, entities.StatusCompleted, gotAction.Status)
	require.NotNil(t, gotAction.CompletedAt)
}

func TestNamespacesShareFileWithoutLeaking(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graft.db")

	a, err := sqlite.Open(path, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := sqlite.Open(path, "b")
	require.NoError(t, err)
	defer b.Close()

	_, err = a.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	_, err = a.DefineVerb(ctx, ports.VerbSpec{Name: "pin"})
	require.NoError(t, err)
	thing, err := a.Create(ctx, "note", map[string]any{"title": "x"}, ports.CreateOptions{ID: "n1"})
	require.NoError(t, err)
	action, err := a.Perform(ctx, "pin", thing.ID, "", nil, ports.PerformOptions{})
	require.NoError(t, err)

	nouns, err := b.ListNouns(ctx)
	require.NoError(t, err)
	assert.Empty(t, nouns)
	verbs, err := b.ListVerbs(ctx)
	require.NoError(t, err)
	assert.Empty(t, verbs)

	got, err := b.Get(ctx, thing.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	gotAction, err := b.GetAction(ctx, action.ID)
	require.NoError(t, err)
	assert.Nil(t, gotAction)
	actions, err := b.ListActions(ctx, ports.ActionFilter{})
	require.NoError(t, err)
	assert.Empty(t, actions)

	// Ids are scoped too: the same id can live in both namespaces.
	_, err = b.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	_, err = b.Create(ctx, "note", map[string]any{"title": "y"}, ports.CreateOptions{ID: "n1"})
	require.NoError(t, err)

	deleted, err := b.Delete(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, deleted)

	still, err := a.Get(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, "x", still.Data["title"])
}

func TestEmptyPayloadStoredAsNull(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t)

	_, err := repo.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	thing, err := repo.Create(ctx, "note", nil, ports.CreateOptions{})
	require.NoError(t, err)

	got, err := repo.Get(ctx, thing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Data)
}
