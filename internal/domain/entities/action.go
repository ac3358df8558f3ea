package entities

import "time"

// ActionStatus represents the lifecycle state of an Action.
type ActionStatus string

// Action statuses. Pending and active are transient; completed, failed and
// cancelled are terminal.
const (
	StatusPending   ActionStatus = "pending"
	StatusActive    ActionStatus = "active"
	StatusCompleted ActionStatus = "completed"
	StatusFailed    ActionStatus = "failed"
	StatusCancelled ActionStatus = "cancelled"
)

// ValidStatus reports whether s is a known action status.
func ValidStatus(s ActionStatus) bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status.
func (s ActionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an action may move from one status to
// another: pending -> active or any terminal state, active -> any terminal
// state, terminal states never transition.
func CanTransition(from, to ActionStatus) bool {
	if from.Terminal() || !ValidStatus(to) {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusActive || to.Terminal()
	case StatusActive:
		return to.Terminal()
	}
	return false
}

// Action records a performed Verb. It is simultaneously a directed graph
// edge between two Things, a domain event, and an audit entry. Subject and
// object are both optional; metadata-only actions are legal.
type Action struct {
	ID          string         `json:"id"`
	Verb        string         `json:"verb"`
	Subject     string         `json:"subject,omitempty"`
	Object      string         `json:"object,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Status      ActionStatus   `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
