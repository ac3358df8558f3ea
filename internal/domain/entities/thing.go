package entities

import "time"

// Thing represents an instance of a Noun. Data is an opaque key-value
// payload; when the Noun declares a schema the payload shape is described
// by it. Updates shallow-merge into Data at the top-level key granularity:
// supplied keys replace their values wholesale, unspecified keys are left
// untouched.
type Thing struct {
	ID        string         `json:"id"`
	Noun      string         `json:"noun"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CloneData returns a deep copy of the Thing's data payload so callers can
// mutate the result, nested values included, without aliasing store state.
func (t *Thing) CloneData() map[string]any {
	return CloneData(t.Data)
}

// CloneData deep-copies a JSON-shaped payload: nested maps and slices are
// copied, scalars are shared.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = cloneValue(v)
	}
	return cp
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneData(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = cloneValue(item)
		}
		return cp
	}
	return v
}
