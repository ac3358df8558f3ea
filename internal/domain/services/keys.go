package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Blob key layout. Frozen for interoperability with existing snapshots and
// WAL segments; do not change the format.
//
//	snapshots/{namespace}/latest.json
//	snapshots/{namespace}/{timestampMillis}.json
//	wal/{namespace}/{timestampMillis}.json

// SnapshotLatestKey returns the fixed "latest" snapshot key for a namespace.
func SnapshotLatestKey(namespace string) string {
	return fmt.Sprintf("snapshots/%s/latest.json", namespace)
}

// SnapshotKey returns the timestamped snapshot key for a namespace.
func SnapshotKey(namespace string, millis int64) string {
	return fmt.Sprintf("snapshots/%s/%d.json", namespace, millis)
}

// WALPrefix returns the key prefix under which a namespace's WAL entries
// live.
func WALPrefix(namespace string) string {
	return fmt.Sprintf("wal/%s/", namespace)
}

// WALKey returns the key for a WAL entry with the given timestamp.
func WALKey(namespace string, millis int64) string {
	return fmt.Sprintf("wal/%s/%d.json", namespace, millis)
}

// ParseWALKey extracts the embedded millisecond timestamp from a WAL key.
// Returns an error for keys that do not match the layout; replay skips
// those rather than aborting.
func ParseWALKey(namespace, key string) (int64, error) {
	prefix := WALPrefix(namespace)
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, fmt.Errorf("key %q is not under %q", key, prefix)
	}
	rest, ok = strings.CutSuffix(rest, ".json")
	if !ok {
		return 0, fmt.Errorf("key %q has no .json suffix", key)
	}
	millis, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key %q has no parseable timestamp: %w", key, err)
	}
	return millis, nil
}
