// Package kv is the port onto the shared key-value/stream store every component
// persists into. RedisStore is the only adapter; unit tests run it against an
// in-process miniredis server (see kvtest).
//
// Errors:
//   - missing keys surface as sentinel.ErrNotFound
//   - transport or server failures surface as sentinel.ErrUnavailable (retryable)
//   - type mismatches on a key surface as sentinel.ErrMalformed
package kv

import (
	"context"
	"time"
)

// LogEntry is one record of an append-only log (a Redis stream).
type LogEntry struct {
	ID     string
	Fields map[string]string
}

// Store is the set of single-key primitives the components rely on. Each call is
// atomic on its own; no call spans multiple keys atomically.
type Store interface {
	// Get returns the value at key or sentinel.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// GetWithTTL returns the value at key and its remaining lifetime, read as one
	// atomic unit. A zero TTL means the key has no expiry.
	GetWithTTL(ctx context.Context, key string) (string, time.Duration, error)
	// Set stores value at key. ttl <= 0 stores without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetIsMember(ctx context.Context, key, member string) (bool, error)

	ListAppend(ctx context.Context, key string, values ...string) error
	ListRange(ctx context.Context, key string) ([]string, error)

	// LogAppend appends fields to the log at key and returns the store-assigned id.
	LogAppend(ctx context.Context, key string, fields map[string]string) (string, error)
	// LogRange returns up to count entries oldest first, strictly after the
	// entry id after ("" starts at the beginning). count <= 0 means no limit.
	LogRange(ctx context.Context, key, after string, count int64) ([]LogEntry, error)
	// LogRevRange returns up to count entries newest first.
	LogRevRange(ctx context.Context, key string, count int64) ([]LogEntry, error)

	// CardinalityAdd adds members to the approximate-cardinality set at key and
	// refreshes its expiry to ttl in the same atomic unit.
	CardinalityAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	CardinalityCount(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
}
