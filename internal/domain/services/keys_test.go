package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "snapshots/prod/latest.json", SnapshotLatestKey("prod"))
	assert.Equal(t, "snapshots/prod/1717200000000.json", SnapshotKey("prod", 1717200000000))
	assert.Equal(t, "wal/prod/", WALPrefix("prod"))
	assert.Equal(t, "wal/prod/1717200000123.json", WALKey("prod", 1717200000123))
}

func TestParseWALKey(t *testing.T) {
	millis, err := ParseWALKey("prod", "wal/prod/1717200000123.json")
	require.NoError(t, err)
	assert.Equal(t, int64(1717200000123), millis)
}

func TestParseWALKey_Invalid(t *testing.T) {
	_, err := ParseWALKey("prod", "wal/other/17.json")
	assert.Error(t, err)

	_, err = ParseWALKey("prod", "wal/prod/17.txt")
	assert.Error(t, err)

	_, err = ParseWALKey("prod", "wal/prod/not-a-number.json")
	assert.Error(t, err)
}

func TestWALClock_Monotonic(t *testing.T) {
	var clock walClock
	prev := clock.Next()
	for i := 0; i < 100; i++ {
		next := clock.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
}
