// Package memory provides an in-memory implementation of the Store
// interface. It is the reference provider: a single mutex-guarded handle
// per namespace, insertion-order listings, and per-endpoint adjacency
// indexes bucketed by verb so traversal cost is proportional to the number
// of matching actions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
	"github.com/graftdb/graft/internal/domain/services"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// edgeIndex buckets action ids by endpoint thing, then by verb. The outer
// key makes verbless lookups a single map hit instead of a scan over every
// (endpoint, verb) pair in the store.
type edgeIndex map[string]map[string][]string

// Store is one namespace's in-memory state. Safe for concurrent use; all
// maps are guarded by a single RWMutex. Concurrent writers to the same
// Thing are last-write-wins, matching the single-logical-writer contract.
type Store struct {
	namespace string

	mu          sync.RWMutex
	nouns       map[string]*entities.Noun
	nounOrder   []string
	verbs       map[string]*entities.Verb
	verbOrder   []string
	things      map[string]*entities.Thing
	thingOrder  map[string][]string
	actions     map[string]*entities.Action
	actionOrder []string
	bySubject   edgeIndex
	byObject    edgeIndex
}

// Compile-time interface check.
var _ ports.Store = (*Store)(nil)

// Open creates an empty store handle for the namespace.
func Open(namespace string) *Store {
	return &Store{
		namespace:  namespace,
		nouns:      make(map[string]*entities.Noun),
		verbs:      make(map[string]*entities.Verb),
		things:     make(map[string]*entities.Thing),
		thingOrder: make(map[string][]string),
		actions:    make(map[string]*entities.Action),
		bySubject:  make(edgeIndex),
		byObject:   make(edgeIndex),
	}
}

// Namespace returns the namespace this handle is scoped to.
func (s *Store) Namespace() string { return s.namespace }

// Close releases the handle. The in-memory provider has nothing to free.
func (s *Store) Close() error { return nil }

// DefineNoun upserts a Noun by name. Missing linguistic forms are derived;
// description and schema merge last-write-wins per field.
func (s *Store) DefineNoun(_ context.Context, spec ports.NounSpec) (*entities.Noun, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("noun name: %w", entities.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	noun, ok := s.nouns[name]
	if !ok {
		forms := services.DeriveNoun(name)
		createdAt := spec.CreatedAt
		if createdAt.IsZero() {
			createdAt = timeNow()
		}
		noun = &entities.Noun{
			Name:      name,
			Singular:  forms.Singular,
			Plural:    forms.Plural,
			Slug:      forms.Slug,
			CreatedAt: createdAt,
		}
		s.nouns[name] = noun
		s.nounOrder = append(s.nounOrder, name)
	}

	if spec.Singular != "" {
		noun.Singular = spec.Singular
		noun.Slug = services.Slugify(spec.Singular)
	}
	if spec.Plural != "" {
		noun.Plural = spec.Plural
	}
	if spec.Description != "" {
		noun.Description = spec.Description
	}
	if len(spec.Schema) > 0 {
		if noun.Schema == nil {
			noun.Schema = make(map[string]entities.FieldDef, len(spec.Schema))
		}
		for field, def := range spec.Schema {
			noun.Schema[field] = def
		}
	}

	return copyNoun(noun), nil
}

// DefineVerb upserts a Verb by name, deriving conjugations.
func (s *Store) DefineVerb(_ context.Context, spec ports.VerbSpec) (*entities.Verb, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("verb name: %w", entities.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	verb, ok := s.verbs[name]
	if !ok {
		forms := services.DeriveVerb(name)
		createdAt := spec.CreatedAt
		if createdAt.IsZero() {
			createdAt = timeNow()
		}
		verb = &entities.Verb{
			Name:      name,
			Action:    forms.Action,
			Act:       forms.Act,
			Activity:  forms.Activity,
			Event:     forms.Event,
			ReverseBy: forms.ReverseBy,
			ReverseAt: forms.ReverseAt,
			CreatedAt: createdAt,
		}
		s.verbs[name] = verb
		s.verbOrder = append(s.verbOrder, name)
	}

	if spec.Description != "" {
		verb.Description = spec.Description
	}
	if spec.Inverse != "" {
		verb.Inverse = spec.Inverse
	}

	cp := *verb
	return &cp, nil
}

// GetNoun returns the Noun or (nil, nil) when absent.
func (s *Store) GetNoun(_ context.Context, name string) (*entities.Noun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	noun, ok := s.nouns[name]
	if !ok {
		return nil, nil
	}
	return copyNoun(noun), nil
}

// GetVerb returns the Verb or (nil, nil) when absent.
func (s *Store) GetVerb(_ context.Context, name string) (*entities.Verb, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	verb, ok := s.verbs[name]
	if !ok {
		return nil, nil
	}
	cp := *verb
	return &cp, nil
}

// ListNouns returns all Nouns in insertion order.
func (s *Store) ListNouns(_ context.Context) ([]entities.Noun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Noun, 0, len(s.nounOrder))
	for _, name := range s.nounOrder {
		out = append(out, *copyNoun(s.nouns[name]))
	}
	return out, nil
}

// ListVerbs returns all Verbs in insertion order.
func (s *Store) ListVerbs(_ context.Context) ([]entities.Verb, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.Verb, 0, len(s.verbOrder))
	for _, name := range s.verbOrder {
		out = append(out, *s.verbs[name])
	}
	return out, nil
}

// Create stores a new Thing of the given Noun.
func (s *Store) Create(_ context.Context, noun string, data map[string]any, opts ports.CreateOptions) (*entities.Thing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nouns[noun]
	if !ok {
		return nil, fmt.Errorf("noun %q: %w", noun, entities.ErrNotFound)
	}

	if opts.Validate {
		if result := services.Validate(data, n.Schema); !result.Valid {
			return nil, &entities.ValidationError{Errors: result.Errors}
		}
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, exists := s.things[id]; exists {
		return nil, fmt.Errorf("thing %q: %w", id, entities.ErrConflict)
	}

	now := timeNow()
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := opts.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	thing := &entities.Thing{
		ID:        id,
		Noun:      noun,
		Data:      cloneData(data),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	s.things[id] = thing
	s.thingOrder[noun] = append(s.thingOrder[noun], id)

	return copyThing(thing), nil
}

// Get returns the Thing or (nil, nil) when absent.
func (s *Store) Get(_ context.Context, id string) (*entities.Thing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thing, ok := s.things[id]
	if !ok {
		return nil, nil
	}
	return copyThing(thing), nil
}

// Update shallow-merges data into the Thing's payload and bumps
// updated_at. With validation requested the merged result is checked first
// and the stored Thing is untouched on failure.
func (s *Store) Update(_ context.Context, id string, data map[string]any, opts ports.UpdateOptions) (*entities.Thing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thing, ok := s.things[id]
	if !ok {
		return nil, fmt.Errorf("thing %q: %w", id, entities.ErrNotFound)
	}

	merged := thing.CloneData()
	if merged == nil {
		merged = make(map[string]any, len(data))
	}
	for k, v := range data {
		merged[k] = v
	}

	if opts.Validate {
		schema := map[string]entities.FieldDef(nil)
		if n, ok := s.nouns[thing.Noun]; ok {
			schema = n.Schema
		}
		if result := services.Validate(merged, schema); !result.Valid {
			return nil, &entities.ValidationError{Errors: result.Errors}
		}
	}

	thing.Data = merged
	if opts.UpdatedAt.IsZero() {
		thing.UpdatedAt = timeNow()
	} else {
		thing.UpdatedAt = opts.UpdatedAt
	}
	return copyThing(thing), nil
}

// Delete removes the Thing. Idempotent: a missing id returns (false, nil).
// Actions referencing the Thing are left in place; traversal skips
// endpoints that no longer resolve.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thing, ok := s.things[id]
	if !ok {
		return false, nil
	}
	delete(s.things, id)
	s.thingOrder[thing.Noun] = removeString(s.thingOrder[thing.Noun], id)
	return true, nil
}

// List returns a page of Things of the given Noun, with equality filters,
// allow-listed ordering and capped pagination.
func (s *Store) List(_ context.Context, noun string, opts ports.ListOptions) (*ports.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nouns[noun]
	if !ok {
		return nil, fmt.Errorf("noun %q: %w", noun, entities.ErrNotFound)
	}

	if opts.OrderBy != "" && !allowedOrderField(n, opts.OrderBy) {
		return nil, fmt.Errorf("orderBy %q is not a known field of %q: %w", opts.OrderBy, noun, entities.ErrInvalidArgument)
	}

	matched := make([]*entities.Thing, 0)
	for _, id := range s.thingOrder[noun] {
		thing := s.things[id]
		if matchesWhere(thing, opts.Where) {
			matched = append(matched, thing)
		}
	}

	if opts.OrderBy != "" {
		sortThings(matched, opts.OrderBy, opts.Descending)
	}

	limit := opts.Clamp()
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	items := make([]*entities.Thing, 0, end-offset)
	for _, thing := range matched[offset:end] {
		items = append(items, copyThing(thing))
	}

	return &ports.Page{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
	}, nil
}

// Perform records an Action of the given Verb. Only the verb is required to
// be registered; subject and object are optional Thing ids and
// metadata-only actions are legal.
func (s *Store) Perform(_ context.Context, verb, subject, object string, data map[string]any, opts ports.PerformOptions) (*entities.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verbs[verb]; !ok {
		return nil, fmt.Errorf("verb %q: %w", verb, entities.ErrNotFound)
	}

	status := opts.Status
	if status == "" {
		status = entities.StatusCompleted
	}
	if !entities.ValidStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, entities.ErrInvalidArgument)
	}

	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, exists := s.actions[id]; exists {
		return nil, fmt.Errorf("action %q: %w", id, entities.ErrConflict)
	}

	now := timeNow()
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	completedAt := opts.CompletedAt
	if completedAt == nil && status.Terminal() {
		completedAt = &now
	}

	action := &entities.Action{
		ID:          id,
		Verb:        verb,
		Subject:     subject,
		Object:      object,
		Data:        cloneData(data),
		Status:      status,
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
	}
	s.actions[id] = action
	s.actionOrder = append(s.actionOrder, id)
	s.index(action)

	return copyAction(action), nil
}

// Transition moves an Action through its status state machine.
func (s *Store) Transition(_ context.Context, actionID string, status entities.ActionStatus) (*entities.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[actionID]
	if !ok {
		return nil, fmt.Errorf("action %q: %w", actionID, entities.ErrNotFound)
	}
	if !entities.CanTransition(action.Status, status) {
		return nil, fmt.Errorf("action %q: %s -> %s: %w", actionID, action.Status, status, entities.ErrInvalidState)
	}

	action.Status = status
	if status.Terminal() {
		now := timeNow()
		action.CompletedAt = &now
	}
	return copyAction(action), nil
}

// GetAction returns the Action or (nil, nil) when absent.
func (s *Store) GetAction(_ context.Context, id string) (*entities.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	action, ok := s.actions[id]
	if !ok {
		return nil, nil
	}
	return copyAction(action), nil
}

// ListActions returns Actions matching the filter in insertion order.
func (s *Store) ListActions(_ context.Context, filter ports.ActionFilter) ([]entities.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Action, 0)
	skipped := 0
	for _, id := range s.actionOrder {
		action := s.actions[id]
		if filter.Verb != "" && action.Verb != filter.Verb {
			continue
		}
		if filter.Status != "" && action.Status != filter.Status {
			continue
		}
		if filter.Subject != "" && action.Subject != filter.Subject {
			continue
		}
		if filter.Object != "" && action.Object != filter.Object {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *copyAction(action))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Purge removes an Action and its index entries. Idempotent like Delete.
func (s *Store) Purge(_ context.Context, actionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, ok := s.actions[actionID]
	if !ok {
		return false, nil
	}
	delete(s.actions, actionID)
	s.actionOrder = removeString(s.actionOrder, actionID)
	s.unindex(action)
	return true, nil
}

// Related resolves the Things adjacent to thingID, de-duplicated by id.
func (s *Store) Related(ctx context.Context, thingID, verb string, dir ports.Direction) ([]*entities.Thing, error) {
	actions, err := s.Edges(ctx, thingID, verb, dir)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	out := make([]*entities.Thing, 0, len(actions))
	for _, action := range actions {
		other := action.Object
		if action.Object == thingID && action.Subject != thingID {
			other = action.Subject
		} else if action.Subject == thingID {
			other = action.Object
		}
		if other == "" || seen[other] {
			continue
		}
		seen[other] = true
		if thing, ok := s.things[other]; ok {
			out = append(out, copyThing(thing))
		}
	}
	return out, nil
}

// Edges returns the matching Action records themselves. Lookup uses the
// per-endpoint adjacency indexes; with no verb filter the endpoint's verb
// buckets are unioned, so cost stays proportional to matching actions.
func (s *Store) Edges(_ context.Context, thingID, verb string, dir ports.Direction) ([]entities.Action, error) {
	if !ports.ValidDirection(dir) {
		return nil, fmt.Errorf("direction %q: %w", dir, entities.ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	if dir == ports.DirectionOut || dir == ports.DirectionBoth {
		ids = append(ids, s.edgeIDs(s.bySubject, thingID, verb)...)
	}
	if dir == ports.DirectionIn || dir == ports.DirectionBoth {
		ids = append(ids, s.edgeIDs(s.byObject, thingID, verb)...)
	}

	seen := make(map[string]bool, len(ids))
	out := make([]entities.Action, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if action, ok := s.actions[id]; ok {
			out = append(out, *copyAction(action))
		}
	}
	return out, nil
}

// edgeIDs collects action ids from one index side. An empty verb unions the
// endpoint's verb buckets, so cost stays proportional to that thing's own
// actions.
func (s *Store) edgeIDs(index edgeIndex, thingID, verb string) []string {
	buckets := index[thingID]
	if verb != "" {
		return buckets[verb]
	}
	var ids []string
	for _, bucket := range buckets {
		ids = append(ids, bucket...)
	}
	return ids
}

// CreateMany applies creates one at a time with per-item outcomes; failures
// never roll back earlier items.
func (s *Store) CreateMany(ctx context.Context, noun string, items []map[string]any, opts ports.CreateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(items))
	for i, data := range items {
		itemOpts := opts
		itemOpts.ID = ""
		thing, err := s.Create(ctx, noun, data, itemOpts)
		results[i] = entities.BatchResult{Index: i, Err: err}
		if thing != nil {
			results[i].ID = thing.ID
		}
	}
	return results, nil
}

// UpdateMany applies updates one at a time with per-item outcomes.
func (s *Store) UpdateMany(ctx context.Context, updates []ports.ThingUpdate, opts ports.UpdateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(updates))
	for i, u := range updates {
		_, err := s.Update(ctx, u.ID, u.Data, opts)
		results[i] = entities.BatchResult{Index: i, ID: u.ID, Err: err}
	}
	return results, nil
}

// DeleteMany applies deletes one at a time with per-item outcomes.
func (s *Store) DeleteMany(ctx context.Context, ids []string) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(ids))
	for i, id := range ids {
		_, err := s.Delete(ctx, id)
		results[i] = entities.BatchResult{Index: i, ID: id, Err: err}
	}
	return results, nil
}

// PerformMany applies performs one at a time with per-item outcomes.
func (s *Store) PerformMany(ctx context.Context, inputs []ports.ActionInput) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(inputs))
	for i, in := range inputs {
		action, err := s.Perform(ctx, in.Verb, in.Subject, in.Object, in.Data, ports.PerformOptions{})
		results[i] = entities.BatchResult{Index: i, Err: err}
		if action != nil {
			results[i].ID = action.ID
		}
	}
	return results, nil
}

// index adds an action to both adjacency indexes.
func (s *Store) index(action *entities.Action) {
	if action.Subject != "" {
		s.bySubject.add(action.Subject, action.Verb, action.ID)
	}
	if action.Object != "" {
		s.byObject.add(action.Object, action.Verb, action.ID)
	}
}

// unindex removes an action from both adjacency indexes.
func (s *Store) unindex(action *entities.Action) {
	if action.Subject != "" {
		s.bySubject.remove(action.Subject, action.Verb, action.ID)
	}
	if action.Object != "" {
		s.byObject.remove(action.Object, action.Verb, action.ID)
	}
}

func (e edgeIndex) add(thingID, verb, actionID string) {
	buckets := e[thingID]
	if buckets == nil {
		buckets = make(map[string][]string)
		e[thingID] = buckets
	}
	buckets[verb] = append(buckets[verb], actionID)
}

// remove drops an action id and prunes emptied buckets so deleted edges
// leave no residue behind.
func (e edgeIndex) remove(thingID, verb, actionID string) {
	buckets := e[thingID]
	if buckets == nil {
		return
	}
	buckets[verb] = removeString(buckets[verb], actionID)
	if len(buckets[verb]) == 0 {
		delete(buckets, verb)
	}
	if len(buckets) == 0 {
		delete(e, thingID)
	}
}

// allowedOrderField reports whether field is on the noun's orderBy
// allow-list.
func allowedOrderField(noun *entities.Noun, field string) bool {
	for _, name := range noun.FieldNames() {
		if name == field {
			return true
		}
	}
	return false
}

// matchesWhere applies top-level equality filters.
func matchesWhere(thing *entities.Thing, where map[string]any) bool {
	for field, want := range where {
		got, ok := thing.Data[field]
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares payload values, treating all numeric types as
// float64 the way JSON decoding does.
func looseEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// sortThings orders things by a built-in field or a top-level data field.
// The sort is stable so equal keys keep insertion order.
func sortThings(things []*entities.Thing, field string, descending bool) {
	less := func(a, b *entities.Thing) bool {
		switch field {
		case "id":
			return a.ID < b.ID
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return lessValue(a.Data[field], b.Data[field])
	}
	sort.SliceStable(things, func(i, j int) bool {
		if descending {
			return less(things[j], things[i])
		}
		return less(things[i], things[j])
	})
}

// lessValue compares two payload values: numbers numerically, otherwise by
// string form. Missing values sort first.
func lessValue(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func removeString(list []string, target string) []string {
	for i, s := range list {
		if s == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func cloneData(data map[string]any) map[string]any {
	return entities.CloneData(data)
}

func copyThing(t *entities.Thing) *entities.Thing {
	cp := *t
	cp.Data = t.CloneData()
	return &cp
}

func copyAction(a *entities.Action) *entities.Action {
	cp := *a
	cp.Data = cloneData(a.Data)
	return &cp
}

func copyNoun(n *entities.Noun) *entities.Noun {
	cp := *n
	if n.Schema != nil {
		cp.Schema = make(map[string]entities.FieldDef, len(n.Schema))
		for k, v := range n.Schema {
			cp.Schema[k] = v
		}
	}
	return &cp
}
