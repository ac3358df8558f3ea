// Package storetest provides a shared contract suite that every Store
// provider must pass. Provider packages invoke Run from their own tests so
// the same behavioral guarantees hold regardless of backing store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) ports.Store

// Run executes the full contract suite against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Run("NounDerivation", func(t *testing.T) { testNounDerivation(t, open(t)) })
	t.Run("NounUpsert", func(t *testing.T) { testNounUpsert(t, open(t)) })
	t.Run("VerbDerivation", func(t *testing.T) { testVerbDerivation(t, open(t)) })
	t.Run("ThingLifecycle", func(t *testing.T) { testThingLifecycle(t, open(t)) })
	t.Run("CreateValidation", func(t *testing.T) { testCreateValidation(t, open(t)) })
	t.Run("UpdateValidationAtomic", func(t *testing.T) { testUpdateValidationAtomic(t, open(t)) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, open(t)) })
	t.Run("ActionLifecycle", func(t *testing.T) { testActionLifecycle(t, open(t)) })
	t.Run("Traversal", func(t *testing.T) { testTraversal(t, open(t)) })
	t.Run("Batch", func(t *testing.T) { testBatch(t, open(t)) })
	t.Run("Purge", func(t *testing.T) { testPurge(t, open(t)) })
}

func testNounDerivation(t *testing.T, store ports.Store) {
	ctx := context.Background()

	noun, err := store.DefineNoun(ctx, ports.NounSpec{Name: "user"})
	require.NoError(t, err)
	assert.Equal(t, "user", noun.Name)
	assert.Equal(t, "user", noun.Singular)
	assert.Equal(t, "users", noun.Plural)
	assert.Equal(t, "user", noun.Slug)
	assert.False(t, noun.CreatedAt.IsZero())

	// Irregular plural and multi-word slug
	person, err := store.DefineNoun(ctx, ports.NounSpec{Name: "person"})
	require.NoError(t, err)
	assert.Equal(t, "people", person.Plural)

	post, err := store.DefineNoun(ctx, ports.NounSpec{Name: "blog post"})
	require.NoError(t, err)
	assert.Equal(t, "blog-post", post.Slug)
	assert.Equal(t, "blog posts", post.Plural)

	_, err = store.DefineNoun(ctx, ports.NounSpec{Name: "  "})
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)

	// Listing preserves insertion order
	nouns, err := store.ListNouns(ctx)
	require.NoError(t, err)
	require.Len(t, nouns, 3)
	assert.Equal(t, "user", nouns[0].Name)
	assert.Equal(t, "person", nouns[1].Name)
	assert.Equal(t, "blog post", nouns[2].Name)

	missing, err := store.GetNoun(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testNounUpsert(t *testing.T, store ports.Store) {
	ctx := context.Background()

	first, err := store.DefineNoun(ctx, ports.NounSpec{
		Name:   "task",
		Schema: map[string]entities.FieldDef{"title": {Type: entities.FieldString, Required: true}},
	})
	require.NoError(t, err)

	second, err := store.DefineNoun(ctx, ports.NounSpec{
		Name:        "task",
		Description: "a unit of work",
		Schema:      map[string]entities.FieldDef{"done": {Type: entities.FieldBoolean}},
	})
	require.NoError(t, err)

	// Same identity, merged schema, amended description
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	assert.Equal(t, "a unit of work", second.Description)
	assert.Contains(t, second.Schema, "title")
	assert.Contains(t, second.Schema, "done")

	nouns, err := store.ListNouns(ctx)
	require.NoError(t, err)
	assert.Len(t, nouns, 1)
}

func testVerbDerivation(t *testing.T, store ports.Store) {
	ctx := context.Background()

	create, err := store.DefineVerb(ctx, ports.VerbSpec{Name: "create"})
	require.NoError(t, err)
	assert.Equal(t, "create", create.Action)
	assert.Equal(t, "creates", create.Act)
	assert.Equal(t, "creating", create.Activity)
	assert.Equal(t, "created", create.Event)
	assert.Equal(t, "createdBy", create.ReverseBy)
	assert.Equal(t, "createdAt", create.ReverseAt)

	write, err := store.DefineVerb(ctx, ports.VerbSpec{Name: "write"})
	require.NoError(t, err)
	assert.Equal(t, "written", write.Event)
	assert.Equal(t, "writing", write.Activity)

	publish, err := store.DefineVerb(ctx, ports.VerbSpec{Name: "publish"})
	require.NoError(t, err)
	assert.Equal(t, "publishes", publish.Act)
	assert.Equal(t, "published", publish.Event)

	verbs, err := store.ListVerbs(ctx)
	require.NoError(t, err)
	require.Len(t, verbs, 3)
	assert.Equal(t, "create", verbs[0].Name)

	missing, err := store.GetVerb(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testThingLifecycle(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "note"})
	require.NoError(t, err)

	// Unknown noun fails
	_, err = store.Create(ctx, "ghost", nil, ports.CreateOptions{})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	thing, err := store.Create(ctx, "note", map[string]any{"title": "first", "pinned": true}, ports.CreateOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, thing.ID)
	assert.Equal(t, "note", thing.Noun)
	assert.False(t, thing.CreatedAt.IsZero())

	// Missing id reads as (nil, nil), never an error
	missing, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got, err := store.Get(ctx, thing.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Data["title"])

	// Explicit ids are honored and collide with Conflict
	named, err := store.Create(ctx, "note", nil, ports.CreateOptions{ID: "note-1"})
	require.NoError(t, err)
	assert.Equal(t, "note-1", named.ID)
	_, err = store.Create(ctx, "note", nil, ports.CreateOptions{ID: "note-1"})
	assert.ErrorIs(t, err, entities.ErrConflict)

	// Shallow merge: supplied keys replace, others survive
	updated, err := store.Update(ctx, thing.ID, map[string]any{"title": "second"}, ports.UpdateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Data["title"])
	assert.Equal(t, true, updated.Data["pinned"])
	assert.False(t, updated.UpdatedAt.Before(thing.UpdatedAt))

	_, err = store.Update(ctx, "absent", map[string]any{"x": 1}, ports.UpdateOptions{})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	// An explicit update timestamp is preserved, so log replay can restore
	// the original mutation time
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stamped, err := store.Update(ctx, thing.ID, map[string]any{"rev": 2.0}, ports.UpdateOptions{UpdatedAt: stamp})
	require.NoError(t, err)
	assert.Equal(t, stamp.UnixNano(), stamped.UpdatedAt.UnixNano())
	reread, err := store.Get(ctx, thing.ID)
	require.NoError(t, err)
	require.NotNil(t, reread)
	assert.Equal(t, stamp.UnixNano(), reread.UpdatedAt.UnixNano())

	// Delete is idempotent: true, then false
	deleted, err := store.Delete(ctx, thing.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.Delete(ctx, thing.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	gone, err := store.Get(ctx, thing.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func testCreateValidation(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{
		Name: "contact",
		Schema: map[string]entities.FieldDef{
			"email": {Type: entities.FieldString, Required: true},
			"age":   {Type: entities.FieldNumber},
		},
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, "contact", map[string]any{"age": "25"}, ports.CreateOptions{Validate: true})
	require.Error(t, err)

	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 2)

	byField := map[string]entities.FieldError{}
	for _, fe := range verr.Errors {
		byField[fe.Field] = fe
	}
	require.Contains(t, byField, "email")
	require.Contains(t, byField, "age")
	assert.Equal(t, entities.CodeRequiredField, byField["email"].Code)
	assert.Equal(t, entities.CodeTypeMismatch, byField["age"].Code)
	assert.Contains(t, byField["age"].Suggestion, "25")

	// Nothing was created
	page, err := store.List(ctx, "contact", ports.ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	// Valid payload passes
	_, err = store.Create(ctx, "contact", map[string]any{"email": "a@b.c", "age": 25.0}, ports.CreateOptions{Validate: true})
	require.NoError(t, err)
}

func testUpdateValidationAtomic(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{
		Name: "device",
		Schema: map[string]entities.FieldDef{
			"serial": {Type: entities.FieldString, Required: true},
		},
	})
	require.NoError(t, err)

	thing, err := store.Create(ctx, "device", map[string]any{"serial": "abc"}, ports.CreateOptions{Validate: true})
	require.NoError(t, err)

	// Merged result would be invalid; the stored thing stays intact
	_, err = store.Update(ctx, thing.ID, map[string]any{"serial": 42}, ports.UpdateOptions{Validate: true})
	var verr *entities.ValidationError
	require.ErrorAs(t, err, &verr)

	got, err := store.Get(ctx, thing.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Data["serial"])
}

func testListPagination(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{
		Name: "item",
		Schema: map[string]entities.FieldDef{
			"rank":  {Type: entities.FieldNumber},
			"color": {Type: entities.FieldString},
		},
	})
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		color := "red"
		if i%2 == 0 {
			color = "blue"
		}
		_, err := store.Create(ctx, "item", map[string]any{"rank": float64(12 - i), "color": color}, ports.CreateOptions{})
		require.NoError(t, err)
	}

	// Default limit
	page, err := store.List(ctx, "item", ports.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Len(t, page.Items, 12)
	assert.Equal(t, ports.DefaultListLimit, page.Limit)
	assert.False(t, page.HasMore)

	// Requested limits above the hard cap are clamped
	page, err = store.List(ctx, "item", ports.ListOptions{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, ports.MaxListLimit, page.Limit)

	// Offset paging
	page, err = store.List(ctx, "item", ports.ListOptions{Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)

	page, err = store.List(ctx, "item", ports.ListOptions{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.True(t, page.HasMore)

	// Equality filters
	page, err = store.List(ctx, "item", ports.ListOptions{Where: map[string]any{"color": "red"}})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)

	// Ordering by a schema field
	page, err = store.List(ctx, "item", ports.ListOptions{OrderBy: "rank", Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, float64(1), page.Items[0].Data["rank"])
	assert.Equal(t, float64(2), page.Items[1].Data["rank"])

	// orderBy is allow-listed against known fields
	_, err = store.List(ctx, "item", ports.ListOptions{OrderBy: "length(id)"})
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)

	_, err = store.List(ctx, "ghost", ports.ListOptions{})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func testActionLifecycle(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "doc"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "review"})
	require.NoError(t, err)

	a, err := store.Create(ctx, "doc", nil, ports.CreateOptions{ID: "doc-a"})
	require.NoError(t, err)
	b, err := store.Create(ctx, "doc", nil, ports.CreateOptions{ID: "doc-b"})
	require.NoError(t, err)

	_, err = store.Perform(ctx, "ghost", a.ID, b.ID, nil, ports.PerformOptions{})
	assert.ErrorIs(t, err, entities.ErrNotFound)

	// Synchronous default: completed with completed_at set
	done, err := store.Perform(ctx, "review", a.ID, b.ID, map[string]any{"score": 5.0}, ports.PerformOptions{})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	// Asynchronous workflow: pending -> active -> completed
	pending, err := store.Perform(ctx, "review", a.ID, b.ID, nil, ports.PerformOptions{Status: entities.StatusPending})
	require.NoError(t, err)
	assert.Nil(t, pending.CompletedAt)

	active, err := store.Transition(ctx, pending.ID, entities.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusActive, active.Status)

	completed, err := store.Transition(ctx, pending.ID, entities.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	// Terminal states never transition again
	_, err = store.Transition(ctx, pending.ID, entities.StatusCancelled)
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	// active never goes back to pending
	second, err := store.Perform(ctx, "review", a.ID, "", nil, ports.PerformOptions{Status: entities.StatusActive})
	require.NoError(t, err)
	_, err = store.Transition(ctx, second.ID, entities.StatusPending)
	assert.ErrorIs(t, err, entities.ErrInvalidState)

	_, err = store.Transition(ctx, "absent", entities.StatusCompleted)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	// Metadata-only actions are legal
	system, err := store.Perform(ctx, "review", "", "", map[string]any{"reason": "scheduled"}, ports.PerformOptions{})
	require.NoError(t, err)
	assert.Empty(t, system.Subject)

	actions, err := store.ListActions(ctx, ports.ActionFilter{Verb: "review"})
	require.NoError(t, err)
	assert.Len(t, actions, 4)

	actions, err = store.ListActions(ctx, ports.ActionFilter{Status: entities.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, actions, 3)

	got, err := store.GetAction(ctx, done.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, float64(5), got.Data["score"])

	gone, err := store.GetAction(ctx, "absent")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func testTraversal(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "page"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "publish"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "link"})
	require.NoError(t, err)

	a, err := store.Create(ctx, "page", nil, ports.CreateOptions{ID: "A"})
	require.NoError(t, err)
	b, err := store.Create(ctx, "page", nil, ports.CreateOptions{ID: "B"})
	require.NoError(t, err)
	c, err := store.Create(ctx, "page", nil, ports.CreateOptions{ID: "C"})
	require.NoError(t, err)

	_, err = store.Perform(ctx, "publish", a.ID, b.ID, nil, ports.PerformOptions{})
	require.NoError(t, err)
	_, err = store.Perform(ctx, "link", a.ID, b.ID, nil, ports.PerformOptions{})
	require.NoError(t, err)
	_, err = store.Perform(ctx, "link", c.ID, a.ID, nil, ports.PerformOptions{})
	require.NoError(t, err)

	// out: things this one acts on
	out, err := store.Related(ctx, a.ID, "publish", ports.DirectionOut)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].ID)

	// in: mirror
	in, err := store.Related(ctx, b.ID, "publish", ports.DirectionIn)
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "A", in[0].ID)

	// both without verb filter de-duplicates by thing id
	both, err := store.Related(ctx, a.ID, "", ports.DirectionBoth)
	require.NoError(t, err)
	ids := map[string]int{}
	for _, thing := range both {
		ids[thing.ID]++
	}
	assert.Equal(t, 1, ids["B"], "B reachable through two actions must appear once")
	assert.Equal(t, 1, ids["C"])

	// edges returns the action records
	edges, err := store.Edges(ctx, a.ID, "", ports.DirectionOut)
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	edges, err = store.Edges(ctx, a.ID, "link", ports.DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	_, err = store.Related(ctx, a.ID, "", ports.Direction("sideways"))
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)

	// Deleted endpoints are skipped during resolution
	_, err = store.Delete(ctx, b.ID)
	require.NoError(t, err)
	out, err = store.Related(ctx, a.ID, "", ports.DirectionOut)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func testBatch(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{
		Name:   "reading",
		Schema: map[string]entities.FieldDef{"value": {Type: entities.FieldNumber, Required: true}},
	})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "record"})
	require.NoError(t, err)

	// Partial failure yields per-item outcomes, not an aggregate error
	results, err := store.CreateMany(ctx, "reading", []map[string]any{
		{"value": 1.0},
		{"value": "bad"},
		{"value": 3.0},
	}, ports.CreateOptions{Validate: true})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 1, entities.BatchFailures(results))

	page, err := store.List(ctx, "reading", ports.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	// UpdateMany and DeleteMany report per-item outcomes too
	updates := []ports.ThingUpdate{
		{ID: results[0].ID, Data: map[string]any{"value": 10.0}},
		{ID: "absent", Data: map[string]any{"value": 1.0}},
	}
	ures, err := store.UpdateMany(ctx, updates, ports.UpdateOptions{})
	require.NoError(t, err)
	assert.NoError(t, ures[0].Err)
	assert.ErrorIs(t, ures[1].Err, entities.ErrNotFound)

	pres, err := store.PerformMany(ctx, []ports.ActionInput{
		{Verb: "record", Subject: results[0].ID},
		{Verb: "ghost"},
	})
	require.NoError(t, err)
	assert.NoError(t, pres[0].Err)
	assert.ErrorIs(t, pres[1].Err, entities.ErrNotFound)

	dres, err := store.DeleteMany(ctx, []string{results[0].ID, "absent"})
	require.NoError(t, err)
	assert.NoError(t, dres[0].Err)
	assert.NoError(t, dres[1].Err, "deleting a missing id is not an error")
}

func testPurge(t *testing.T, store ports.Store) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{Name: "record"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "touch"})
	require.NoError(t, err)

	a, err := store.Create(ctx, "record", nil, ports.CreateOptions{ID: "a"})
	require.NoError(t, err)
	b, err := store.Create(ctx, "record", nil, ports.CreateOptions{ID: "b"})
	require.NoError(t, err)

	action, err := store.Perform(ctx, "touch", a.ID, b.ID, nil, ports.PerformOptions{})
	require.NoError(t, err)

	purged, err := store.Purge(ctx, action.ID)
	require.NoError(t, err)
	assert.True(t, purged)

	purged, err = store.Purge(ctx, action.ID)
	require.NoError(t, err)
	assert.False(t, purged)

	edges, err := store.Edges(ctx, a.ID, "", ports.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, edges)

	gone, err := store.GetAction(ctx, action.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// Seed populates a store with a small graph for durability tests and
// returns the expected record counts.
func Seed(t *testing.T, store ports.Store) (nouns, verbs, things, actions int) {
	ctx := context.Background()

	_, err := store.DefineNoun(ctx, ports.NounSpec{
		Name:   "author",
		Schema: map[string]entities.FieldDef{"name": {Type: entities.FieldString, Required: true}},
	})
	require.NoError(t, err)
	_, err = store.DefineNoun(ctx, ports.NounSpec{Name: "book"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "write"})
	require.NoError(t, err)
	_, err = store.DefineVerb(ctx, ports.VerbSpec{Name: "publish"})
	require.NoError(t, err)

	alice, err := store.Create(ctx, "author", map[string]any{"name": "alice"}, ports.CreateOptions{ID: "author-alice"})
	require.NoError(t, err)
	novel, err := store.Create(ctx, "book", map[string]any{"title": "novel"}, ports.CreateOptions{ID: "book-novel"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "book", map[string]any{"title": "essays"}, ports.CreateOptions{ID: "book-essays"})
	require.NoError(t, err)

	_, err = store.Perform(ctx, "write", alice.ID, novel.ID, nil, ports.PerformOptions{})
	require.NoError(t, err)
	_, err = store.Perform(ctx, "publish", alice.ID, novel.ID, map[string]any{"year": 2024.0}, ports.PerformOptions{})
	require.NoError(t, err)

	return 2, 2, 3, 2
}
