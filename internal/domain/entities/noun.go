// Package entities contains core domain data structures.
package entities

import "time"

// FieldType represents the declared type of a schema field.
type FieldType string

// Field types a Noun schema can declare for Thing data payloads.
const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldArray    FieldType = "array"
	FieldObject   FieldType = "object"
	FieldRelation FieldType = "relation"
)

// FieldDef describes a single field in a Noun's schema.
type FieldDef struct {
	Type        FieldType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Noun represents a declared entity type. The name is the identity and is
// immutable once created; description and schema may be amended via the
// define upsert path.
type Noun struct {
	Name        string              `json:"name"`
	Singular    string              `json:"singular"`
	Plural      string              `json:"plural"`
	Slug        string              `json:"slug"`
	Description string              `json:"description,omitempty"`
	Schema      map[string]FieldDef `json:"schema,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// FieldNames returns the schema field names plus the built-in ordering
// fields. This is the allow-list used to validate dynamic orderBy input.
func (n *Noun) FieldNames() []string {
	names := []string{"id", "created_at", "updated_at"}
	for name := range n.Schema {
		names = append(names, name)
	}
	return names
}
