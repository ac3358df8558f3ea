package services

import (
	"context"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
)

// Journaled decorates a Store with WAL durability: every mutating call
// appends one WAL entry through the Durability service. A failed append
// fails the triggering operation; the system prefers failing a write over
// risking silent data loss.
//
// The mutation is applied to the inner store first so the entry can carry
// the assigned id and timestamps. When the append then fails the caller
// sees an error while the in-memory state may hold the mutation; that
// "possibly applied" ambiguity is by contract resolved by restoring the
// latest snapshot and replaying the WAL.
type Journaled struct {
	inner      ports.Store
	durability *Durability
}

// NewJournaled wraps inner so that every mutation is journaled through d.
func NewJournaled(inner ports.Store, d *Durability) *Journaled {
	return &Journaled{inner: inner, durability: d}
}

// Compile-time interface check.
var _ ports.Store = (*Journaled)(nil)

// Namespace returns the wrapped store's namespace.
func (j *Journaled) Namespace() string { return j.inner.Namespace() }

// Close closes the wrapped store.
func (j *Journaled) Close() error { return j.inner.Close() }

// DefineNoun upserts a Noun and journals the stored result.
func (j *Journaled) DefineNoun(ctx context.Context, spec ports.NounSpec) (*entities.Noun, error) {
	noun, err := j.inner.DefineNoun(ctx, spec)
	if err != nil {
		return nil, err
	}
	if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALDefineNoun, Noun: noun}); err != nil {
		return nil, err
	}
	return noun, nil
}

// DefineVerb upserts a Verb and journals the stored result.
func (j *Journaled) DefineVerb(ctx context.Context, spec ports.VerbSpec) (*entities.Verb, error) {
	verb, err := j.inner.DefineVerb(ctx, spec)
	if err != nil {
		return nil, err
	}
	if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALDefineVerb, Verb: verb}); err != nil {
		return nil, err
	}
	return verb, nil
}

// GetNoun delegates to the wrapped store.
func (j *Journaled) GetNoun(ctx context.Context, name string) (*entities.Noun, error) {
	return j.inner.GetNoun(ctx, name)
}

// GetVerb delegates to the wrapped store.
func (j *Journaled) GetVerb(ctx context.Context, name string) (*entities.Verb, error) {
	return j.inner.GetVerb(ctx, name)
}

// ListNouns delegates to the wrapped store.
func (j *Journaled) ListNouns(ctx context.Context) ([]entities.Noun, error) {
	return j.inner.ListNouns(ctx)
}

// ListVerbs delegates to the wrapped store.
func (j *Journaled) ListVerbs(ctx context.Context) ([]entities.Verb, error) {
	return j.inner.ListVerbs(ctx)
}

// Create stores a Thing and journals it with its assigned id and
// timestamps.
func (j *Journaled) Create(ctx context.Context, noun string, data map[string]any, opts ports.CreateOptions) (*entities.Thing, error) {
	thing, err := j.inner.Create(ctx, noun, data, opts)
	if err != nil {
		return nil, err
	}
	if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALCreate, Thing: thing}); err != nil {
		return nil, err
	}
	return thing, nil
}

// Get delegates to the wrapped store.
func (j *Journaled) Get(ctx context.Context, id string) (*entities.Thing, error) {
	return j.inner.Get(ctx, id)
}

// Update applies a partial update and journals the partial payload, not the
// merged result, so replay reproduces the same merge. The entry carries the
// post-merge updated_at so replay restores the original timestamp.
func (j *Journaled) Update(ctx context.Context, id string, data map[string]any, opts ports.UpdateOptions) (*entities.Thing, error) {
	thing, err := j.inner.Update(ctx, id, data, opts)
	if err != nil {
		return nil, err
	}
	entry := entities.WALEntry{Op: entities.WALUpdate, ThingID: id, Data: data, UpdatedAt: &thing.UpdatedAt}
	if _, err := j.durability.AppendWAL(ctx, entry); err != nil {
		return nil, err
	}
	return thing, nil
}

// Delete removes a Thing. The deletion is journaled even though the call is
// idempotent; a missing delete entry would resurrect the Thing on replay.
func (j *Journaled) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := j.inner.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALDelete, ThingID: id}); err != nil {
			return false, err
		}
	}
	return deleted, nil
}

// List delegates to the wrapped store.
func (j *Journaled) List(ctx context.Context, noun string, opts ports.ListOptions) (*ports.Page, error) {
	return j.inner.List(ctx, noun, opts)
}

// Perform records an Action and journals it.
func (j *Journaled) Perform(ctx context.Context, verb, subject, object string, data map[string]any, opts ports.PerformOptions) (*entities.Action, error) {
	action, err := j.inner.Perform(ctx, verb, subject, object, data, opts)
	if err != nil {
		return nil, err
	}
	if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALPerform, Action: action}); err != nil {
		return nil, err
	}
	return action, nil
}

// Transition moves an Action through its state machine and journals the
// transition.
func (j *Journaled) Transition(ctx context.Context, actionID string, status entities.ActionStatus) (*entities.Action, error) {
	action, err := j.inner.Transition(ctx, actionID, status)
	if err != nil {
		return nil, err
	}
	if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALTransition, ActionID: actionID, Status: status}); err != nil {
		return nil, err
	}
	return action, nil
}

// GetAction delegates to the wrapped store.
func (j *Journaled) GetAction(ctx context.Context, id string) (*entities.Action, error) {
	return j.inner.GetAction(ctx, id)
}

// ListActions delegates to the wrapped store.
func (j *Journaled) ListActions(ctx context.Context, filter ports.ActionFilter) ([]entities.Action, error) {
	return j.inner.ListActions(ctx, filter)
}

// Purge removes an Action and journals the purge, keeping the removal
// itself audited.
func (j *Journaled) Purge(ctx context.Context, actionID string) (bool, error) {
	purged, err := j.inner.Purge(ctx, actionID)
	if err != nil {
		return false, err
	}
	if purged {
		if _, err := j.durability.AppendWAL(ctx, entities.WALEntry{Op: entities.WALPurge, ActionID: actionID}); err != nil {
			return false, err
		}
	}
	return purged, nil
}

// Related delegates to the wrapped store.
func (j *Journaled) Related(ctx context.Context, thingID, verb string, dir ports.Direction) ([]*entities.Thing, error) {
	return j.inner.Related(ctx, thingID, verb, dir)
}

// Edges delegates to the wrapped store.
func (j *Journaled) Edges(ctx context.Context, thingID, verb string, dir ports.Direction) ([]entities.Action, error) {
	return j.inner.Edges(ctx, thingID, verb, dir)
}

// CreateMany applies creates one at a time so each success is journaled
// individually; per-item outcomes are returned.
func (j *Journaled) CreateMany(ctx context.Context, noun string, items []map[string]any, opts ports.CreateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(items))
	for i, data := range items {
		itemOpts := opts
		itemOpts.ID = ""
		thing, err := j.Create(ctx, noun, data, itemOpts)
		results[i] = entities.BatchResult{Index: i, Err: err}
		if thing != nil {
			results[i].ID = thing.ID
		}
	}
	return results, nil
}

// UpdateMany applies updates one at a time with per-item outcomes.
func (j *Journaled) UpdateMany(ctx context.Context, updates []ports.ThingUpdate, opts ports.UpdateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(updates))
	for i, u := range updates {
		_, err := j.Update(ctx, u.ID, u.Data, opts)
		results[i] = entities.BatchResult{Index: i, ID: u.ID, Err: err}
	}
	return results, nil
}

// DeleteMany applies deletes one at a time with per-item outcomes.
func (j *Journaled) DeleteMany(ctx context.Context, ids []string) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(ids))
	for i, id := range ids {
		_, err := j.Delete(ctx, id)
		results[i] = entities.BatchResult{Index: i, ID: id, Err: err}
	}
	return results, nil
}

// PerformMany applies performs one at a time with per-item outcomes.
func (j *Journaled) PerformMany(ctx context.Context, inputs []ports.ActionInput) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(inputs))
	for i, in := range inputs {
		action, err := j.Perform(ctx, in.Verb, in.Subject, in.Object, in.Data, ports.PerformOptions{})
		results[i] = entities.BatchResult{Index: i, Err: err}
		if action != nil {
			results[i].ID = action.ID
		}
	}
	return results, nil
}
