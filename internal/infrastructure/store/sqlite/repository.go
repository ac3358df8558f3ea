// Package sqlite provides a durable SQLite implementation of the Store
// interface using the pure Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/graftdb/graft/internal/domain/entities"
	"github.com/graftdb/graft/internal/domain/ports"
	"github.com/graftdb/graft/internal/domain/services"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// timeLayout is the column format for timestamps.
const timeLayout = time.RFC3339Nano

// Repository implements ports.Store backed by a SQLite database file.
// Every row carries the handle's namespace and every statement filters by
// it, so namespaces sharing one file stay isolated. Insertion order falls
// out of rowid ordering; the adjacency requirement is covered by indexes on
// (namespace, subject_id, verb) and (namespace, object_id, verb).
type Repository struct {
	db        *sql.DB
	path      string
	namespace string
}

// Compile-time interface check.
var _ ports.Store = (*Repository)(nil)

// Open opens or creates the database at path for one namespace and ensures
// the schema exists.
func Open(path, namespace string) (*Repository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path: %w", entities.ErrInvalidArgument)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	r := &Repository{db: db, path: path, namespace: namespace}
	if err := r.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Namespace returns the namespace this handle is scoped to.
func (r *Repository) Namespace() string { return r.namespace }

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// ensureSchema creates the database schema if it doesn't exist. Every table
// carries the namespace so handles over the same file stay fully isolated.
func (r *Repository) ensureSchema(ctx context.Context) error {
	schema := `
	-- Declared entity types
	CREATE TABLE IF NOT EXISTS nouns (
		namespace TEXT NOT NULL,
		name TEXT NOT NULL,
		singular TEXT NOT NULL,
		plural TEXT NOT NULL,
		slug TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		schema TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (namespace, name)
	);

	-- Declared relationship/event types
	CREATE TABLE IF NOT EXISTS verbs (
		namespace TEXT NOT NULL,
		name TEXT NOT NULL,
		action TEXT NOT NULL,
		act TEXT NOT NULL,
		activity TEXT NOT NULL,
		event TEXT NOT NULL,
		reverse_by TEXT NOT NULL,
		reverse_at TEXT NOT NULL,
		inverse TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		PRIMARY KEY (namespace, name)
	);

	-- Entity instances
	CREATE TABLE IF NOT EXISTS things (
		namespace TEXT NOT NULL,
		id TEXT NOT NULL,
		noun TEXT NOT NULL,
		data TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, id)
	);
	CREATE INDEX IF NOT EXISTS idx_things_noun ON things(namespace, noun);

	-- Performed verbs: graph edges, events and audit entries all at once
	CREATE TABLE IF NOT EXISTS actions (
		namespace TEXT NOT NULL,
		id TEXT NOT NULL,
		verb TEXT NOT NULL,
		subject_id TEXT NOT NULL DEFAULT '',
		object_id TEXT NOT NULL DEFAULT '',
		data TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		PRIMARY KEY (namespace, id)
	);
	CREATE INDEX IF NOT EXISTS idx_actions_subject_verb ON actions(namespace, subject_id, verb);
	CREATE INDEX IF NOT EXISTS idx_actions_object_verb ON actions(namespace, object_id, verb);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// DefineNoun upserts a Noun by name.
func (r *Repository) DefineNoun(ctx context.Context, spec ports.NounSpec) (*entities.Noun, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("noun name: %w", entities.ErrInvalidArgument)
	}

	noun, err := r.GetNoun(ctx, name)
	if err != nil {
		return nil, err
	}
	if noun == nil {
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

	schemaJSON, err := marshalJSON(noun.Schema)
	if err != nil {
		return nil, fmt.Errorf("encoding noun schema: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO nouns (namespace, name, singular, plural, slug, description, schema, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, name) DO UPDATE SET
			singular = excluded.singular,
			plural = excluded.plural,
			slug = excluded.slug,
			description = excluded.description,
			schema = excluded.schema
	`, r.namespace, noun.Name, noun.Singular, noun.Plural, noun.Slug, noun.Description, schemaJSON, noun.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, entities.NewBackendError("save noun", err)
	}
	return noun, nil
}

// DefineVerb upserts a Verb by name, deriving conjugations.
func (r *Repository) DefineVerb(ctx context.Context, spec ports.VerbSpec) (*entities.Verb, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("verb name: %w", entities.ErrInvalidArgument)
	}

	verb, err := r.GetVerb(ctx, name)
	if err != nil {
		return nil, err
	}
	if verb == nil {
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
	}

	if spec.Description != "" {
		verb.Description = spec.Description
	}
	if spec.Inverse != "" {
		verb.Inverse = spec.Inverse
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO verbs (namespace, name, action, act, activity, event, reverse_by, reverse_at, inverse, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, name) DO UPDATE SET
			inverse = excluded.inverse,
			description = excluded.description
	`, r.namespace, verb.Name, verb.Action, verb.Act, verb.Activity, verb.Event, verb.ReverseBy, verb.ReverseAt, verb.Inverse, verb.Description, verb.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, entities.NewBackendError("save verb", err)
	}
	return verb, nil
}

// GetNoun returns the Noun or (nil, nil) when absent.
func (r *Repository) GetNoun(ctx context.Context, name string) (*entities.Noun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, singular, plural, slug, description, schema, created_at
		FROM nouns WHERE namespace = ? AND name = ?
	`, r.namespace, name)
	noun, err := scanNoun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, entities.NewBackendError("get noun", err)
	}
	return noun, nil
}

// GetVerb returns the Verb or (nil, nil) when absent.
func (r *Repository) GetVerb(ctx context.Context, name string) (*entities.Verb, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, action, act, activity, event, reverse_by, reverse_at, inverse, description, created_at
		FROM verbs WHERE namespace = ? AND name = ?
	`, r.namespace, name)
	verb, err := scanVerb(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, entities.NewBackendError("get verb", err)
	}
	return verb, nil
}

// ListNouns returns all Nouns in insertion order.
func (r *Repository) ListNouns(ctx context.Context) ([]entities.Noun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, singular, plural, slug, description, schema, created_at
		FROM nouns WHERE namespace = ? ORDER BY rowid
	`, r.namespace)
	if err != nil {
		return nil, entities.NewBackendError("list nouns", err)
	}
	defer rows.Close()

	out := make([]entities.Noun, 0)
	for rows.Next() {
		noun, err := scanNoun(rows)
		if err != nil {
			return nil, entities.NewBackendError("scan noun", err)
		}
		out = append(out, *noun)
	}
	return out, rows.Err()
}

// ListVerbs returns all Verbs in insertion order.
func (r *Repository) ListVerbs(ctx context.Context) ([]entities.Verb, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, action, act, activity, event, reverse_by, reverse_at, inverse, description, created_at
		FROM verbs WHERE namespace = ? ORDER BY rowid
	`, r.namespace)
	if err != nil {
		return nil, entities.NewBackendError("list verbs", err)
	}
	defer rows.Close()

	out := make([]entities.Verb, 0)
	for rows.Next() {
		verb, err := scanVerb(rows)
		if err != nil {
			return nil, entities.NewBackendError("scan verb", err)
		}
		out = append(out, *verb)
	}
	return out, rows.Err()
}

// Create stores a new Thing of the given Noun.
func (r *Repository) Create(ctx context.Context, noun string, data map[string]any, opts ports.CreateOptions) (*entities.Thing, error) {
	n, err := r.GetNoun(ctx, noun)
	if err != nil {
		return nil, err
	}
	if n == nil {
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
	} else {
		existing, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("thing %q: %w", id, entities.ErrConflict)
		}
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

	dataJSON, err := marshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("encoding thing data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO things (namespace, id, noun, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.namespace, id, noun, dataJSON, createdAt.Format(timeLayout), updatedAt.Format(timeLayout))
	if err != nil {
		return nil, entities.NewBackendError("save thing", err)
	}

	return &entities.Thing{
		ID:        id,
		Noun:      noun,
		Data:      data,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Get returns the Thing or (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*entities.Thing, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, noun, data, created_at, updated_at
		FROM things WHERE namespace = ? AND id = ?
	`, r.namespace, id)
	thing, err := scanThing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, entities.NewBackendError("get thing", err)
	}
	return thing, nil
}

// Update shallow-merges data into the Thing's payload and bumps
// updated_at.
func (r *Repository) Update(ctx context.Context, id string, data map[string]any, opts ports.UpdateOptions) (*entities.Thing, error) {
	thing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if thing == nil {
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
		n, err := r.GetNoun(ctx, thing.Noun)
		if err != nil {
			return nil, err
		}
		var schema map[string]entities.FieldDef
		if n != nil {
			schema = n.Schema
		}
		if result := services.Validate(merged, schema); !result.Valid {
			return nil, &entities.ValidationError{Errors: result.Errors}
		}
	}

	dataJSON, err := marshalJSON(merged)
	if err != nil {
		return nil, fmt.Errorf("encoding thing data: %w", err)
	}

	updatedAt := opts.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = timeNow()
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE things SET data = ?, updated_at = ? WHERE namespace = ? AND id = ?
	`, dataJSON, updatedAt.Format(timeLayout), r.namespace, id)
	if err != nil {
		return nil, entities.NewBackendError("update thing", err)
	}

	thing.Data = merged
	thing.UpdatedAt = updatedAt
	return thing, nil
}

// Delete removes the Thing. Idempotent: a missing id returns (false, nil).
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM things WHERE namespace = ? AND id = ?`, r.namespace, id)
	if err != nil {
		return false, entities.NewBackendError("delete thing", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, entities.NewBackendError("delete thing", err)
	}
	return n > 0, nil
}

// List returns a page of Things of the given Noun. Rows are scanned in
// insertion order; equality filters and ordering run over the decoded JSON
// payloads in Go since data columns are opaque by design.
func (r *Repository) List(ctx context.Context, noun string, opts ports.ListOptions) (*ports.Page, error) {
	n, err := r.GetNoun(ctx, noun)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("noun %q: %w", noun, entities.ErrNotFound)
	}
	if opts.OrderBy != "" && !allowedOrderField(n, opts.OrderBy) {
		return nil, fmt.Errorf("orderBy %q is not a known field of %q: %w", opts.OrderBy, noun, entities.ErrInvalidArgument)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, noun, data, created_at, updated_at
		FROM things WHERE namespace = ? AND noun = ? ORDER BY rowid
	`, r.namespace, noun)
	if err != nil {
		return nil, entities.NewBackendError("list things", err)
	}
	defer rows.Close()

	matched := make([]*entities.Thing, 0)
	for rows.Next() {
		thing, err := scanThing(rows)
		if err != nil {
			return nil, entities.NewBackendError("scan thing", err)
		}
		if matchesWhere(thing, opts.Where) {
			matched = append(matched, thing)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, entities.NewBackendError("list things", err)
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

	return &ports.Page{
		Items:   matched[offset:end],
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
	}, nil
}

// Perform records an Action of the given Verb.
func (r *Repository) Perform(ctx context.Context, verb, subject, object string, data map[string]any, opts ports.PerformOptions) (*entities.Action, error) {
	v, err := r.GetVerb(ctx, verb)
	if err != nil {
		return nil, err
	}
	if v == nil {
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
	} else {
		existing, err := r.GetAction(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("action %q: %w", id, entities.ErrConflict)
		}
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

	dataJSON, err := marshalJSON(data)
	if err != nil {
		return nil, fmt.Errorf("encoding action data: %w", err)
	}

	var completedCol any
	if completedAt != nil {
		completedCol = completedAt.Format(timeLayout)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO actions (namespace, id, verb, subject_id, object_id, data, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.namespace, id, verb, subject, object, dataJSON, string(status), createdAt.Format(timeLayout), completedCol)
	if err != nil {
		return nil, entities.NewBackendError("save action", err)
	}

	return &entities.Action{
		ID:          id,
		Verb:        verb,
		Subject:     subject,
		Object:      object,
		Data:        data,
		Status:      status,
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
	}, nil
}

// Transition moves an Action through its status state machine.
func (r *Repository) Transition(ctx context.Context, actionID string, status entities.ActionStatus) (*entities.Action, error) {
	action, err := r.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action == nil {
		return nil, fmt.Errorf("action %q: %w", actionID, entities.ErrNotFound)
	}
	if !entities.CanTransition(action.Status, status) {
		return nil, fmt.Errorf("action %q: %s -> %s: %w", actionID, action.Status, status, entities.ErrInvalidState)
	}

	action.Status = status
	var completedCol any
	if status.Terminal() {
		now := timeNow()
		action.CompletedAt = &now
		completedCol = now.Format(timeLayout)
	} else if action.CompletedAt != nil {
		completedCol = action.CompletedAt.Format(timeLayout)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE actions SET status = ?, completed_at = ? WHERE namespace = ? AND id = ?
	`, string(status), completedCol, r.namespace, actionID)
	if err != nil {
		return nil, entities.NewBackendError("update action", err)
	}
	return action, nil
}

// GetAction returns the Action or (nil, nil) when absent.
func (r *Repository) GetAction(ctx context.Context, id string) (*entities.Action, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, verb, subject_id, object_id, data, status, created_at, completed_at
		FROM actions WHERE namespace = ? AND id = ?
	`, r.namespace, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, entities.NewBackendError("get action", err)
	}
	return action, nil
}

// ListActions returns Actions matching the filter in insertion order.
func (r *Repository) ListActions(ctx context.Context, filter ports.ActionFilter) ([]entities.Action, error) {
	query := `
		SELECT id, verb, subject_id, object_id, data, status, created_at, completed_at
		FROM actions WHERE namespace = ?
	`
	args := []any{r.namespace}
	if filter.Verb != "" {
		query += " AND verb = ?"
		args = append(args, filter.Verb)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Subject != "" {
		query += " AND subject_id = ?"
		args = append(args, filter.Subject)
	}
	if filter.Object != "" {
		query += " AND object_id = ?"
		args = append(args, filter.Object)
	}
	query += " ORDER BY rowid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, entities.NewBackendError("list actions", err)
	}
	defer rows.Close()

	out := make([]entities.Action, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, entities.NewBackendError("scan action", err)
		}
		out = append(out, *action)
	}
	return out, rows.Err()
}

// Purge removes an Action. Idempotent like Delete.
func (r *Repository) Purge(ctx context.Context, actionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM actions WHERE namespace = ? AND id = ?`, r.namespace, actionID)
	if err != nil {
		return false, entities.NewBackendError("purge action", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, entities.NewBackendError("purge action", err)
	}
	return n > 0, nil
}

// Related resolves the Things adjacent to thingID, de-duplicated by id.
func (r *Repository) Related(ctx context.Context, thingID, verb string, dir ports.Direction) ([]*entities.Thing, error) {
	actions, err := r.Edges(ctx, thingID, verb, dir)
	if err != nil {
		return nil, err
	}

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
		thing, err := r.Get(ctx, other)
		if err != nil {
			return nil, err
		}
		if thing != nil {
			out = append(out, thing)
		}
	}
	return out, nil
}

// Edges returns the matching Action records via the adjacency indexes.
func (r *Repository) Edges(ctx context.Context, thingID, verb string, dir ports.Direction) ([]entities.Action, error) {
	if !ports.ValidDirection(dir) {
		return nil, fmt.Errorf("direction %q: %w", dir, entities.ErrInvalidArgument)
	}

	var clauses []string
	var args []any
	if dir == ports.DirectionOut || dir == ports.DirectionBoth {
		if verb != "" {
			clauses = append(clauses, "(subject_id = ? AND verb = ?)")
			args = append(args, thingID, verb)
		} else {
			clauses = append(clauses, "subject_id = ?")
			args = append(args, thingID)
		}
	}
	if dir == ports.DirectionIn || dir == ports.DirectionBoth {
		if verb != "" {
			clauses = append(clauses, "(object_id = ? AND verb = ?)")
			args = append(args, thingID, verb)
		} else {
			clauses = append(clauses, "object_id = ?")
			args = append(args, thingID)
		}
	}

	query := `
		SELECT id, verb, subject_id, object_id, data, status, created_at, completed_at
		FROM actions WHERE namespace = ? AND (` + strings.Join(clauses, " OR ") + `) ORDER BY rowid
	`
	rows, err := r.db.QueryContext(ctx, query, append([]any{r.namespace}, args...)...)
	if err != nil {
		return nil, entities.NewBackendError("query edges", err)
	}
	defer rows.Close()

	out := make([]entities.Action, 0)
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, entities.NewBackendError("scan action", err)
		}
		out = append(out, *action)
	}
	return out, rows.Err()
}

// CreateMany applies creates one at a time with per-item outcomes.
func (r *Repository) CreateMany(ctx context.Context, noun string, items []map[string]any, opts ports.CreateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(items))
	for i, data := range items {
		itemOpts := opts
		itemOpts.ID = ""
		thing, err := r.Create(ctx, noun, data, itemOpts)
		results[i] = entities.BatchResult{Index: i, Err: err}
		if thing != nil {
			results[i].ID = thing.ID
		}
	}
	return results, nil
}

// UpdateMany applies updates one at a time with per-item outcomes.
func (r *Repository) UpdateMany(ctx context.Context, updates []ports.ThingUpdate, opts ports.UpdateOptions) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(updates))
	for i, u := range updates {
		_, err := r.Update(ctx, u.ID, u.Data, opts)
		results[i] = entities.BatchResult{Index: i, ID: u.ID, Err: err}
	}
	return results, nil
}

// DeleteMany applies deletes one at a time with per-item outcomes.
func (r *Repository) DeleteMany(ctx context.Context, ids []string) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(ids))
	for i, id := range ids {
		_, err := r.Delete(ctx, id)
		results[i] = entities.BatchResult{Index: i, ID: id, Err: err}
	}
	return results, nil
}

// PerformMany applies performs one at a time with per-item outcomes.
func (r *Repository) PerformMany(ctx context.Context, inputs []ports.ActionInput) ([]entities.BatchResult, error) {
	results := make([]entities.BatchResult, len(inputs))
	for i, in := range inputs {
		action, err := r.Perform(ctx, in.Verb, in.Subject, in.Object, in.Data, ports.PerformOptions{})
		results[i] = entities.BatchResult{Index: i, Err: err}
		if action != nil {
			results[i].ID = action.ID
		}
	}
	return results, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNoun(s scanner) (*entities.Noun, error) {
	var noun entities.Noun
	var schemaJSON sql.NullString
	var createdAt string
	if err := s.Scan(&noun.Name, &noun.Singular, &noun.Plural, &noun.Slug, &noun.Description, &schemaJSON, &createdAt); err != nil {
		return nil, err
	}
	if schemaJSON.Valid && schemaJSON.String != "" {
		if err := json.Unmarshal([]byte(schemaJSON.String), &noun.Schema); err != nil {
			return nil, fmt.Errorf("decoding noun schema: %w", err)
		}
	}
	var err error
	noun.CreatedAt, err = parseTime(createdAt)
	return &noun, err
}

func scanVerb(s scanner) (*entities.Verb, error) {
	var verb entities.Verb
	var createdAt string
	if err := s.Scan(&verb.Name, &verb.Action, &verb.Act, &verb.Activity, &verb.Event, &verb.ReverseBy, &verb.ReverseAt, &verb.Inverse, &verb.Description, &createdAt); err != nil {
		return nil, err
	}
	var err error
	verb.CreatedAt, err = parseTime(createdAt)
	return &verb, err
}

func scanThing(s scanner) (*entities.Thing, error) {
	var thing entities.Thing
	var dataJSON sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&thing.ID, &thing.Noun, &dataJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if dataJSON.Valid && dataJSON.String != "" {
		if err := json.Unmarshal([]byte(dataJSON.String), &thing.Data); err != nil {
			return nil, fmt.Errorf("decoding thing data: %w", err)
		}
	}
	var err error
	if thing.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	thing.UpdatedAt, err = parseTime(updatedAt)
	return &thing, err
}

func scanAction(s scanner) (*entities.Action, error) {
	var action entities.Action
	var dataJSON sql.NullString
	var status, createdAt string
	var completedAt sql.NullString
	if err := s.Scan(&action.ID, &action.Verb, &action.Subject, &action.Object, &dataJSON, &status, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	action.Status = entities.ActionStatus(status)
	if dataJSON.Valid && dataJSON.String != "" {
		if err := json.Unmarshal([]byte(dataJSON.String), &action.Data); err != nil {
			return nil, fmt.Errorf("decoding action data: %w", err)
		}
	}
	var err error
	if action.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		action.CompletedAt = &t
	}
	return &action, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// marshalJSON encodes a map column, storing NULL for empty payloads.
func marshalJSON(v any) (any, error) {
	switch m := v.(type) {
	case map[string]any:
		if len(m) == 0 {
			return nil, nil
		}
	case map[string]entities.FieldDef:
		if len(m) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
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
