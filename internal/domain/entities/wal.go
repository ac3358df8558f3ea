package entities

import "time"

// WALOp identifies the kind of mutation a WAL entry records. The set is
// closed: replay switches over it exhaustively, so adding a new mutation
// kind is a compile-visible change in one place.
type WALOp string

// WAL operation kinds, one per mutating store call.
const (
	WALDefineNoun WALOp = "define_noun"
	WALDefineVerb WALOp = "define_verb"
	WALCreate     WALOp = "create"
	WALUpdate     WALOp = "update"
	WALDelete     WALOp = "delete"
	WALPerform    WALOp = "perform"
	WALTransition WALOp = "transition"
	WALPurge      WALOp = "purge"
)

// WALEntry is one append-only log record. Exactly the payload fields for
// its Op are populated: Noun for define_noun, Verb for define_verb, Thing
// for create, ThingID+Data+UpdatedAt for update, ThingID for delete, Action
// for perform, ActionID+Status for transition, ActionID for purge.
//
// Timestamp is in milliseconds and is embedded in the blob key
// (wal/{namespace}/{millis}.json) so that listing the prefix yields
// chronological order.
type WALEntry struct {
	Op        WALOp          `json:"op"`
	Timestamp int64          `json:"timestamp"`
	Namespace string         `json:"namespace,omitempty"`
	Noun      *Noun          `json:"noun,omitempty"`
	Verb      *Verb          `json:"verb,omitempty"`
	Thing     *Thing         `json:"thing,omitempty"`
	ThingID   string         `json:"thing_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	Action    *Action        `json:"action,omitempty"`
	ActionID  string         `json:"action_id,omitempty"`
	Status    ActionStatus   `json:"status,omitempty"`
}
