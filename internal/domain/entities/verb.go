package entities

import "time"

// Verb represents a declared relationship/event type. The derived
// conjugations are computed deterministically from the name when the verb
// is defined and are stored alongside it.
type Verb struct {
	Name        string    `json:"name"`
	Action      string    `json:"action"`     // imperative: "create"
	Act         string    `json:"act"`        // third person: "creates"
	Activity    string    `json:"activity"`   // gerund: "creating"
	Event       string    `json:"event"`      // past participle: "created"
	ReverseBy   string    `json:"reverse_by"` // back-reference: "createdBy"
	ReverseAt   string    `json:"reverse_at"` // back-reference: "createdAt"
	Inverse     string    `json:"inverse,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
