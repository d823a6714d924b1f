package admission

import (
	"context"
	"time"
)

// CounterStore is the gateway's view of the shared counter store. Every
// operation is atomic at the store level; two concurrent increments of the
// same key always observe distinct counts.
//
// Implementations must return an error for connectivity or timeout problems
// rather than a zero value, so callers can tell "store unreachable" apart
// from "counter at zero".
type CounterStore interface {
	// Incr atomically increments key and returns the new count, creating the
	// key at 1 if absent.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets or refreshes a TTL on key without touching its value.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL reports the remaining lifetime of key. Keys without an expiry, or
	// missing keys, report zero.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Get fetches key. The second return reports presence.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key with a TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
