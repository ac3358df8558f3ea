package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/mocks"
	"github.com/graftdb/graft/internal/domain/ports"
	"github.com/graftdb/graft/internal/domain/services"
	"github.com/graftdb/graft/internal/infrastructure/store/memory"
)

func newJournaled(t *testing.T) (*services.Journaled, *mocks.BlobStore) {
	t.Helper()
	blobs := mocks.NewBlobStore()
	inner := memory.Open("test")
	d := services.NewDurability(inner, blobs, "test")
	return services.NewJournaled(inner, d), blobs
}

func lastEntry(t *testing.T, blobs *mocks.BlobStore) entities.WALEntry {
	t.Helper()
	require.NotEmpty(t, blobs.Puts)
	key := blobs.Puts[len(blobs.Puts)-1]
	var entry entities.WALEntry
	require.NoError(t, json.Unmarshal(blobs.Blobs[key], &entry))
	return entry
}

func TestJournaled_EntryPerMutation(t *testing.T) {
	ctx := context.Background()
	journaled, blobs := newJournaled(t)

	_, err := journaled.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	assert.Equal(t, entities.WALDefineNoun, lastEntry(t, blobs).Op)

	_, err = journaled.DefineVerb(ctx, ports.VerbSpec{Name: "pin"})
	require.NoError(t, err)
	assert.Equal(t, entities.WALDefineVerb, lastEntry(t, blobs).Op)

	thing, err := journaled.Create(ctx, "note", map[string]any{"title": "x"}, ports.CreateOptions{})
	require.NoError(t, err)
	entry := lastEntry(t, blobs)
	assert.Equal(t, entities.WALCreate, entry.Op)
	require.NotNil(t, entry.Thing)
	assert.Equal(t, thing.ID, entry.Thing.ID, "journal carries the assigned id")
	assert.Equal(t, "test", entry.Namespace)

	action, err := journaled.Perform(ctx, "pin", thing.ID, "", nil, ports.PerformOptions{Status: entities.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, entities.WALPerform, lastEntry(t, blobs).Op)

	_, err = journaled.Transition(ctx, action.ID, entities.StatusCompleted)
	require.NoError(t, err)
	entry = lastEntry(t, blobs)
	assert.Equal(t, entities.WALTransition, entry.Op)
	assert.Equal(t, entities.StatusCompleted, entry.Status)

	assert.Len(t, blobs.Puts, 5)
}

func TestJournaled_UpdateCarriesPartialPayload(t *testing.T) {
	ctx := context.Background()
	journaled, blobs := newJournaled(t)

	_, err := journaled.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	thing, err := journaled.Create(ctx, "note", map[string]any{"title": "x", "pinned": true}, ports.CreateOptions{})
	require.NoError(t, err)

	updated, err := journaled.Update(ctx, thing.ID, map[string]any{"title": "y"}, ports.UpdateOptions{})
	require.NoError(t, err)

	entry := lastEntry(t, blobs)
	assert.Equal(t, entities.WALUpdate, entry.Op)
	assert.Equal(t, thing.ID, entry.ThingID)
	// The partial payload replays the merge; the untouched key is absent
	assert.Equal(t, map[string]any{"title": "y"}, entry.Data)
	require.NotNil(t, entry.UpdatedAt)
	assert.Equal(t, updated.UpdatedAt.UnixNano(), entry.UpdatedAt.UnixNano())
}

func TestJournaled_NoEntryForNoopDelete(t *testing.T) {
	ctx := context.Background()
	journaled, blobs := newJournaled(t)

	_, err := journaled.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	thing, err := journaled.Create(ctx, "note", nil, ports.CreateOptions{})
	require.NoError(t, err)
	before := len(blobs.Puts)

	deleted, err := journaled.Delete(ctx, thing.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Len(t, blobs.Puts, before+1)

	// Second delete is a no-op and must not journal
	deleted, err = journaled.Delete(ctx, thing.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, blobs.Puts, before+1)

	deleted, err = journaled.Purge(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, blobs.Puts, before+1)
}

func TestJournaled_NoEntryForFailedMutation(t *testing.T) {
	ctx := context.Background()
	journaled, blobs := newJournaled(t)

	_, err := journaled.Create(ctx, "ghost", nil, ports.CreateOptions{})
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.Empty(t, blobs.Puts)
}

func TestJournaled_AppendFailureFailsOperation(t *testing.T) {
	ctx := context.Background()
	blobs := mocks.NewBlobStore()
	inner := memory.Open("test")
	d := services.NewDurability(inner, blobs, "test")
	journaled := services.NewJournaled(inner, d)

	_, err := journaled.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)

	blobs.PutErr = assert.AnError
	_, err = journaled.Create(ctx, "note", nil, ports.CreateOptions{ID: "n1"})
	require.Error(t, err)
	var berr *entities.BackendError
	assert.ErrorAs(t, err, &berr)
}

func TestJournaled_ReadsDelegate(t *testing.T) {
	ctx := context.Background()
	journaled, blobs := newJournaled(t)

	_, err := journaled.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)
	thing, err := journaled.Create(ctx, "note", nil, ports.CreateOptions{})
	require.NoError(t, err)
	writes := len(blobs.Puts)

	got, err := journaled.Get(ctx, thing.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = journaled.List(ctx, "note", ports.ListOptions{})
	require.NoError(t, err)

	assert.Len(t, blobs.Puts, writes, "reads never journal")
	assert.Equal(t, "test", journaled.Namespace())
}

func TestJournaled_BatchJournalsEachSuccess(t *testing.T) {
	ctx := context.Background()
	journaled, blobs := newJournaled(t)

	_, err := journaled.DefineNoun(ctx, ports.NounSpec{
		Name:   "note",
		Schema: map[string]entities.FieldDef{"n": {Type: entities.FieldNumber, Required: true}},
	})
	require.NoError(t, err)
	before := len(blobs.Puts)

	results, err := journaled.CreateMany(ctx, "note", []map[string]any{
		{"n": 1.0},
		{"n": "bad"},
		{"n": 3.0},
	}, ports.CreateOptions{Validate: true})
	require.NoError(t, err)
	assert.Equal(t, 1, entities.BatchFailures(results))
	assert.Len(t, blobs.Puts, before+2, "one entry per successful item")
}
