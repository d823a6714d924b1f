package admission

import (
	"context"
	"fmt"
	"time"
)

// WindowLimiter counts events per subject over a fixed window. The first
// event of a window creates the counter and arms its TTL; the counter
// disappears when the TTL elapses, resetting the subject to zero.
//
// Fixed windows admit up to 2x capacity across a window boundary in the
// worst case. That is the accepted trade-off for O(1) storage and a single
// increment round trip per check; a strict sliding window would need a
// timestamp log per key.
type WindowLimiter struct {
	Store    CounterStore
	Prefix   string
	Capacity int64
	Window   time.Duration
	Clock    func() time.Time
}

// Result is the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Count     int64
	Remaining int64
	ResetAt   time.Time
}

// Check records one event for subject and reports whether it fits within
// Capacity events per Window. A store failure returns an error, never a
// Result, so callers cannot mistake "unknown" for "allowed" or "denied".
func (l *WindowLimiter) Check(ctx context.Context, subject string) (Result, error) {
	if subject == "" {
		subject = UnknownSubject
	}
	key := l.Prefix + subject

	count, err := l.Store.Incr(ctx, key)
	if err != nil {
		return Result{}, err
	}

	now := l.now()
	resetAt := now.Add(l.Window)

	if count == 1 {
		// Key was just created; arm the window.
		if err := l.Store.Expire(ctx, key, l.Window); err != nil {
			return Result{}, err
		}
	} else {
		ttl, err := l.Store.TTL(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if ttl > 0 {
			resetAt = now.Add(ttl)
		}
	}

	remaining := l.Capacity - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= l.Capacity,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (l *WindowLimiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func (l *WindowLimiter) validate() error {
	if l.Store == nil {
		return fmt.Errorf("limiter %q: counter store is required", l.Prefix)
	}
	if l.Capacity <= 0 {
		return fmt.Errorf("limiter %q: capacity must be positive", l.Prefix)
	}
	if l.Window <= 0 {
		return fmt.Errorf("limiter %q: window must be positive", l.Prefix)
	}
	return nil
}
