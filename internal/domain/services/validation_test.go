package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graftdb/graft/internal/domain/entities"
)

func TestValidate_EmptySchema(t *testing.T) {
	result := Validate(map[string]any{"anything": "goes"}, nil)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_RequiredAndMismatch(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"email": {Type: entities.FieldString, Required: true},
		"age":   {Type: entities.FieldNumber},
	}

	result := Validate(map[string]any{"age": "25"}, schema)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 2)

	// Sorted field order: age before email
	age := result.Errors[0]
	assert.Equal(t, "age", age.Field)
	assert.Equal(t, entities.CodeTypeMismatch, age.Code)
	assert.Equal(t, "number", age.Expected)
	assert.Equal(t, "25", age.Received)
	assert.Equal(t, `convert "25" to the number 25`, age.Suggestion)

	email := result.Errors[1]
	assert.Equal(t, "email", email.Field)
	assert.Equal(t, entities.CodeRequiredField, email.Code)
	assert.Equal(t, "null", email.Received)
}

func TestValidate_NilCountsAsMissing(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"name": {Type: entities.FieldString, Required: true},
	}
	result := Validate(map[string]any{"name": nil}, schema)
	require.False(t, result.Valid)
	assert.Equal(t, entities.CodeRequiredField, result.Errors[0].Code)

	// Optional nil is fine
	schema["name"] = entities.FieldDef{Type: entities.FieldString}
	assert.True(t, Validate(map[string]any{"name": nil}, schema).Valid)
}

func TestValidate_UndeclaredFieldsPass(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"title": {Type: entities.FieldString},
	}
	result := Validate(map[string]any{"title": "ok", "extra": 42}, schema)
	assert.True(t, result.Valid)
}

func TestValidate_BooleanSuggestion(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"active": {Type: entities.FieldBoolean},
	}
	result := Validate(map[string]any{"active": "true"}, schema)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, `convert "true" to the boolean true`, result.Errors[0].Suggestion)
}

func TestValidate_ArraySuggestion(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"tags": {Type: entities.FieldArray},
	}
	result := Validate(map[string]any{"tags": "urgent"}, schema)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "wrap the value in an array: [urgent]", result.Errors[0].Suggestion)

	assert.True(t, Validate(map[string]any{"tags": []any{"urgent"}}, schema).Valid)
}

func TestValidate_DateFields(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"due": {Type: entities.FieldDate},
	}

	assert.True(t, Validate(map[string]any{"due": "2024-06-01"}, schema).Valid)
	assert.True(t, Validate(map[string]any{"due": "2024-06-01T10:30:00Z"}, schema).Valid)

	result := Validate(map[string]any{"due": "soonish"}, schema)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, entities.CodeInvalidFormat, result.Errors[0].Code)

	// Numeric epochs get a conversion hint
	result = Validate(map[string]any{"due": 1717200000.0}, schema)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, entities.CodeTypeMismatch, result.Errors[0].Code)
	assert.Equal(t, `use the date string "2024-06-01T00:00:00Z"`, result.Errors[0].Suggestion)
}

func TestValidate_RelationAndObject(t *testing.T) {
	schema := map[string]entities.FieldDef{
		"owner": {Type: entities.FieldRelation},
		"meta":  {Type: entities.FieldObject},
	}

	assert.True(t, Validate(map[string]any{"owner": "thing-1", "meta": map[string]any{"a": 1}}, schema).Valid)

	result := Validate(map[string]any{"owner": 7, "meta": "nope"}, schema)
	require.Len(t, result.Errors, 2)
	for _, fe := range result.Errors {
		assert.Equal(t, entities.CodeTypeMismatch, fe.Code)
	}
}

func TestValidate_PureInputsUntouched(t *testing.T) {
	data := map[string]any{"age": "25"}
	schema := map[string]entities.FieldDef{
		"age": {Type: entities.FieldNumber},
	}
	_ = Validate(data, schema)
	assert.Equal(t, "25", data["age"])
	assert.Equal(t, entities.FieldNumber, schema["age"].Type)
}
