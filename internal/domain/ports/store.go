// Package ports defines the interfaces between the domain and its
// infrastructure providers.
package ports

import (
	"context"
	"time"

	"github.com/graftdb/graft/internal/domain/entities"
)

// Direction selects which side of an Action a traversal follows.
type Direction string

// Traversal directions. Out follows actions where the thing is the subject,
// in follows actions where it is the object, both unions the two with
// de-duplication by thing id.
const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// ValidDirection reports whether d is a known traversal direction.
func ValidDirection(d Direction) bool {
	return d == DirectionOut || d == DirectionIn || d == DirectionBoth
}

// NounSpec is the input to DefineNoun. Only Name is required; missing
// linguistic forms are derived. CreatedAt is honored when non-zero so that
// snapshot restore preserves original timestamps.
type NounSpec struct {
	Name        string
	Description string
	Singular    string
	Plural      string
	Schema      map[string]entities.FieldDef
	CreatedAt   time.Time
}

// VerbSpec is the input to DefineVerb.
type VerbSpec struct {
	Name        string
	Description string
	Inverse     string
	CreatedAt   time.Time
}

// CreateOptions controls Create. A supplied ID must be globally unique;
// when empty a UUID is generated. Timestamps are honored when non-zero so
// restore and import preserve original values.
type CreateOptions struct {
	ID        string
	Validate  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateOptions controls Update. When Validate is set the merged result is
// validated against the Noun's schema; on failure the stored Thing is left
// unmodified. UpdatedAt is honored when non-zero so WAL replay reproduces
// the original mutation's timestamp instead of stamping replay time.
type UpdateOptions struct {
	Validate  bool
	UpdatedAt time.Time
}

// ListOptions controls List. Where applies equality filters over top-level
// data fields. OrderBy must name a field in the Noun's schema or one of the
// built-in fields (id, created_at, updated_at). Limit defaults to
// DefaultListLimit and is capped at MaxListLimit.
type ListOptions struct {
	Where      map[string]any
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// List pagination bounds.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Clamp returns the effective limit for the options.
func (o ListOptions) Clamp() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		return MaxListLimit
	}
	return o.Limit
}

// Page is one page of List results.
type Page struct {
	Items   []*entities.Thing `json:"items"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
}

// PerformOptions controls Perform. Status defaults to completed
// (synchronous actions); asynchronous workflows create the action pending
// and transition it later. ID and timestamps are honored when supplied so
// restore preserves action identity.
type PerformOptions struct {
	ID          string
	Status      entities.ActionStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// ActionFilter narrows ListActions.
type ActionFilter struct {
	Verb    string
	Status  entities.ActionStatus
	Subject string
	Object  string
	Limit   int
	Offset  int
}

// ThingUpdate is one element of UpdateMany.
type ThingUpdate struct {
	ID   string
	Data map[string]any
}

// ActionInput is one element of PerformMany.
type ActionInput struct {
	Verb    string
	Subject string
	Object  string
	Data    map[string]any
}

// Store is the full surface of one namespace's entity-graph store. Three
// providers implement it (memory, sqlite, http client); all are expected to
// pass the shared contract suite in internal/storetest.
//
// Reads return (nil, nil) for absent records rather than an error, except
// where documented. Mutations surface entities.ErrNotFound, ErrConflict,
// ErrInvalidState, ErrInvalidArgument and *entities.ValidationError;
// infrastructure faults are wrapped as *entities.BackendError.
type Store interface {
	// Namespace returns the namespace this handle is scoped to.
	Namespace() string

	// Close releases the handle.
	Close() error

	// Registry operations.

	// DefineNoun upserts a Noun by name, deriving missing linguistic
	// forms. Description and schema merge last-write-wins per field.
	DefineNoun(ctx context.Context, spec NounSpec) (*entities.Noun, error)

	// DefineVerb upserts a Verb by name, deriving conjugations.
	DefineVerb(ctx context.Context, spec VerbSpec) (*entities.Verb, error)

	// GetNoun returns the Noun or (nil, nil) when absent.
	GetNoun(ctx context.Context, name string) (*entities.Noun, error)

	// GetVerb returns the Verb or (nil, nil) when absent.
	GetVerb(ctx context.Context, name string) (*entities.Verb, error)

	// ListNouns returns all Nouns in insertion order.
	ListNouns(ctx context.Context) ([]entities.Noun, error)

	// ListVerbs returns all Verbs in insertion order.
	ListVerbs(ctx context.Context) ([]entities.Verb, error)

	// Thing operations.

	// Create stores a new Thing of the given Noun.
	Create(ctx context.Context, noun string, data map[string]any, opts CreateOptions) (*entities.Thing, error)

	// Get returns the Thing or (nil, nil) when absent. It never fails for
	// a missing id.
	Get(ctx context.Context, id string) (*entities.Thing, error)

	// Update shallow-merges data into the Thing and bumps updated_at.
	Update(ctx context.Context, id string, data map[string]any, opts UpdateOptions) (*entities.Thing, error)

	// Delete removes the Thing. Idempotent: deleting a missing id returns
	// (false, nil).
	Delete(ctx context.Context, id string) (bool, error)

	// List returns a page of Things of the given Noun.
	List(ctx context.Context, noun string, opts ListOptions) (*Page, error)

	// Action operations.

	// Perform records an Action of the given Verb between two optional
	// Things.
	Perform(ctx context.Context, verb, subject, object string, data map[string]any, opts PerformOptions) (*entities.Action, error)

	// Transition moves an Action through its status state machine,
	// setting completed_at on entry to a terminal state.
	Transition(ctx context.Context, actionID string, status entities.ActionStatus) (*entities.Action, error)

	// GetAction returns the Action or (nil, nil) when absent.
	GetAction(ctx context.Context, id string) (*entities.Action, error)

	// ListActions returns Actions matching the filter in insertion order.
	ListActions(ctx context.Context, filter ActionFilter) ([]entities.Action, error)

	// Purge removes an Action. Distinct from ordinary delete: it exists
	// for data-retention compliance and is expected to be journaled.
	// Idempotent like Delete.
	Purge(ctx context.Context, actionID string) (bool, error)

	// Graph traversal.

	// Related returns the Things adjacent to thingID through Actions,
	// optionally filtered by verb. Cost is proportional to the number of
	// matching Actions.
	Related(ctx context.Context, thingID, verb string, dir Direction) ([]*entities.Thing, error)

	// Edges returns the matching Action records themselves.
	Edges(ctx context.Context, thingID, verb string, dir Direction) ([]entities.Action, error)

	// Batch operations. Best-effort with per-item outcomes; no rollback.

	CreateMany(ctx context.Context, noun string, items []map[string]any, opts CreateOptions) ([]entities.BatchResult, error)
	UpdateMany(ctx context.Context, updates []ThingUpdate, opts UpdateOptions) ([]entities.BatchResult, error)
	DeleteMany(ctx context.Context, ids []string) ([]entities.BatchResult, error)
	PerformMany(ctx context.Context, inputs []ActionInput) ([]entities.BatchResult, error)
}
