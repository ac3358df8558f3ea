package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the logical failure modes of the store. Providers wrap
// these with context via fmt.Errorf("...: %w", err) so callers can test with
// errors.Is regardless of provider.
var (
	// ErrNotFound indicates a referenced Noun, Verb, Thing, Action,
	// snapshot or WAL blob does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates an id collision on create.
	ErrConflict = errors.New("already exists")
	// ErrInvalidState indicates an illegal Action status transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrInvalidArgument indicates malformed registry or store input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ValidationCode identifies a kind of schema validation failure.
type ValidationCode string

// Validation error codes.
const (
	CodeRequiredField ValidationCode = "REQUIRED_FIELD"
	CodeTypeMismatch  ValidationCode = "TYPE_MISMATCH"
	CodeInvalidFormat ValidationCode = "INVALID_FORMAT"
	CodeUnknownField  ValidationCode = "UNKNOWN_FIELD"
)

// FieldError is a single structured validation failure for one field.
type FieldError struct {
	Field      string         `json:"field"`
	Code       ValidationCode `json:"code"`
	Message    string         `json:"message"`
	Expected   string         `json:"expected,omitempty"`
	Received   string         `json:"received,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// ValidationError carries the full structured error list from a failed
// validation. It is never a bare string; callers can inspect Errors for
// per-field diagnostics.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// BackendError wraps an underlying object-store or database failure so
// callers can distinguish infrastructure faults from logical errors when
// deciding retry policy.
type BackendError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err as a BackendError for the named operation.
func NewBackendError(op string, err error) *BackendError {
	return &BackendError{Op: op, Err: err}
}
