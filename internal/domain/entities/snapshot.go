package entities

// SnapshotVersion is the schema version written into snapshot documents.
const SnapshotVersion = 1

// SnapshotDocument is the full serialized state of one namespace: the type
// registry plus every Thing and Action. Restore order matters and is fixed:
// nouns, then verbs, then things, then actions, because Things reference
// Nouns and Actions reference Verbs and Things.
type SnapshotDocument struct {
	Version   int      `json:"version"`
	Timestamp int64    `json:"timestamp"`
	Namespace string   `json:"namespace"`
	Nouns     []Noun   `json:"nouns"`
	Verbs     []Verb   `json:"verbs"`
	Things    []Thing  `json:"things"`
	Actions   []Action `json:"actions"`
}

// ExportRecordType tags one JSONL export line.
type ExportRecordType string

// JSONL record types.
const (
	RecordNoun   ExportRecordType = "noun"
	RecordVerb   ExportRecordType = "verb"
	RecordThing  ExportRecordType = "thing"
	RecordAction ExportRecordType = "action"
)
