package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/graftdb/graft/internal/domain/entities"
)

// ValidationResult is the outcome of validating a data payload against a
// Noun schema.
type ValidationResult struct {
	Valid  bool                  `json:"valid"`
	Errors []entities.FieldError `json:"errors,omitempty"`
}

// Date formats accepted for date and datetime fields.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validate checks data against schema and returns the structured result.
// It is pure: read-only, side-effect-free, and never mutates either input.
// Fields are checked in sorted name order so error lists are deterministic.
// Undeclared fields are not rejected (UNKNOWN_FIELD is reserved for a future
// strict mode).
func Validate(data map[string]any, schema map[string]entities.FieldDef) ValidationResult {
	if len(schema) == 0 {
		return ValidationResult{Valid: true}
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []entities.FieldError
	for _, name := range names {
		def := schema[name]
		value, present := data[name]

		if !present || value == nil {
			if def.Required {
				errs = append(errs, entities.FieldError{
					Field:    name,
					Code:     entities.CodeRequiredField,
					Message:  fmt.Sprintf("field %q is required", name),
					Expected: string(def.Type),
					Received: "null",
				})
			}
			continue
		}

		if fe := checkType(name, value, def); fe != nil {
			errs = append(errs, *fe)
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// checkType verifies one present, non-nil value against its declared type.
func checkType(name string, value any, def entities.FieldDef) *entities.FieldError {
	switch def.Type {
	case entities.FieldString, entities.FieldRelation:
		if _, ok := value.(string); !ok {
			return mismatch(name, def, value)
		}
	case entities.FieldNumber:
		if !isNumber(value) {
			return mismatch(name, def, value)
		}
	case entities.FieldBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(name, def, value)
		}
	case entities.FieldDate, entities.FieldDatetime:
		s, ok := value.(string)
		if !ok {
			return mismatch(name, def, value)
		}
		if !parseableDate(s) {
			return &entities.FieldError{
				Field:    name,
				Code:     entities.CodeInvalidFormat,
				Message:  fmt.Sprintf("field %q is not a valid %s string", name, def.Type),
				Expected: string(def.Type),
				Received: fmt.Sprintf("%q", s),
			}
		}
	case entities.FieldArray:
		if _, ok := value.([]any); !ok {
			return mismatch(name, def, value)
		}
	case entities.FieldObject:
		if _, ok := value.(map[string]any); !ok {
			return mismatch(name, def, value)
		}
	}
	return nil
}

// mismatch builds a TYPE_MISMATCH error with a best-effort coercion
// suggestion.
func mismatch(name string, def entities.FieldDef, value any) *entities.FieldError {
	return &entities.FieldError{
		Field:      name,
		Code:       entities.CodeTypeMismatch,
		Message:    fmt.Sprintf("field %q expected %s, got %s", name, def.Type, typeName(value)),
		Expected:   string(def.Type),
		Received:   fmt.Sprintf("%v", value),
		Suggestion: suggest(def.Type, value),
	}
}

// suggest computes a coercion hint for a mistyped value, or "" when no
// sensible coercion exists.
func suggest(expected entities.FieldType, value any) string {
	switch expected {
	case entities.FieldNumber:
		if s, ok := value.(string); ok {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				return fmt.Sprintf("convert %q to the number %s", s, formatNumber(n))
			}
		}
	case entities.FieldBoolean:
		if s, ok := value.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return fmt.Sprintf("convert %q to the boolean %t", s, b)
			}
		}
	case entities.FieldArray:
		switch value.(type) {
		case map[string]any:
		default:
			return fmt.Sprintf("wrap the value in an array: [%v]", value)
		}
	case entities.FieldDate, entities.FieldDatetime:
		if ms, ok := asEpochMillis(value); ok {
			return fmt.Sprintf("use the date string %q", time.UnixMilli(ms).UTC().Format(time.RFC3339))
		}
	}
	return ""
}

func isNumber(value any) bool {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// asEpochMillis interprets a numeric value as a millisecond epoch. Values
// small enough to be second-precision epochs are scaled up.
func asEpochMillis(value any) (int64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return 0, false
	}
	if n <= 0 {
		return 0, false
	}
	if n < 1e12 {
		return int64(n) * 1000, true
	}
	return int64(n), true
}

func parseableDate(s string) bool {
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// formatNumber renders a float without a trailing ".0" for integral values.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
