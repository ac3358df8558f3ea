package entities

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := fmt.Errorf("thing %q: %w", "t1", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Field: "age", Code: CodeTypeMismatch, Message: `field "age" expected number, got string`},
		{Field: "email", Code: CodeRequiredField, Message: `field "email" is required`},
	}}
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "age")
	assert.Contains(t, err.Error(), "email")

	empty := &ValidationError{}
	assert.Equal(t, "validation failed", empty.Error())
}

func TestValidationError_As(t *testing.T) {
	var err error = &ValidationError{Errors: []FieldError{{Field: "x", Code: CodeRequiredField}}}
	wrapped := fmt.Errorf("creating thing: %w", err)

	var verr *ValidationError
	require.ErrorAs(t, wrapped, &verr)
	assert.Equal(t, "x", verr.Errors[0].Field)
}

func TestBackendError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewBackendError("put snapshot", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "put snapshot")

	var berr *BackendError
	require.ErrorAs(t, fmt.Errorf("snapshotting: %w", err), &berr)
	assert.Equal(t, "put snapshot", berr.Op)
}
