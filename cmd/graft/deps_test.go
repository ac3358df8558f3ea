package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseData(t *testing.T) {
	data, err := parseData(`{"title":"x","rank":3}`)
	require.NoError(t, err)
	assert.Equal(t, "x", data["title"])
	assert.Equal(t, float64(3), data["rank"])

	data, err = parseData("")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = parseData("[1,2]")
	assert.Error(t, err)

	_, err = parseData("{broken")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly", truncate("exactly", 7))
	assert.Equal(t, "long st...", truncate("long string here", 10))
}

func TestCompactJSON(t *testing.T) {
	assert.Equal(t, "{}", compactJSON(nil))
	assert.Equal(t, `{"a":1}`, compactJSON(map[string]any{"a": 1}))
}
