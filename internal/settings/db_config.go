// Package settings exposes DB-backed runtime configuration through an
// atomically swapped in-memory snapshot, so hot paths never query the
// settings table directly.
package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot is one immutable view of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Value // stores snapshot

func init() {
	current.Store(snapshot{values: map[string]json.RawMessage{}})
}

// StoreDBConfig replaces the in-memory settings snapshot. Values are deep
// copied so later mutation of the input map cannot leak into readers.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for rawKey, value := range values {
		key := strings.TrimSpace(rawKey)
		if key == "" {
			continue
		}
		if value == nil {
			next[key] = nil
			continue
		}
		copied := make([]byte, len(value))
		copy(copied, value)
		next[key] = copied
	}

	current.Store(snapshot{
		updatedAt: updatedAt.UTC(),
		values:    next,
	})
}

// DBConfigUpdatedAt returns the newest updated_at seen by the last refresh.
func DBConfigUpdatedAt() time.Time {
	return currentSnapshot().updatedAt
}

// DBConfigValue returns a copy of the raw JSON value for a settings key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	value, ok := currentSnapshot().values[key]
	if !ok {
		return nil, false
	}
	if value == nil {
		return nil, true
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true
}

func currentSnapshot() snapshot {
	s, ok := current.Load().(snapshot)
	if !ok || s.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return s
}
