package admission

import (
	"context"
	"fmt"
	"time"
)

// Key prefixes for the escalation policy.
const (
	AbuseKeyPrefix     = "requests:"
	BlacklistKeyPrefix = "blacklist:"
)

// BlacklistConfig tunes the escalation policy.
type BlacklistConfig struct {
	// Threshold is the request count within Window above which an address
	// is banned. The request that crosses the threshold is itself denied.
	Threshold int64
	Window    time.Duration
	BanTTL    time.Duration
}

// DefaultBlacklistConfig bans an address for 24 hours once it exceeds 50
// requests inside a rolling minute.
func DefaultBlacklistConfig() BlacklistConfig {
	return BlacklistConfig{
		Threshold: 50,
		Window:    time.Minute,
		BanTTL:    24 * time.Hour,
	}
}

// Blacklist detects rapid-fire abuse from a single source address across
// every protected route and promotes repeat offenders to a temporary
// deny-list. Recovery happens only through TTL expiry of the entry.
type Blacklist struct {
	store  CounterStore
	abuse  *WindowLimiter
	banTTL time.Duration
}

// NewBlacklist builds the escalation policy on the shared counter store.
func NewBlacklist(store CounterStore, cfg BlacklistConfig, clock func() time.Time) (*Blacklist, error) {
	if cfg.BanTTL <= 0 {
		return nil, fmt.Errorf("blacklist: ban ttl must be positive")
	}

	abuse := &WindowLimiter{
		Store:    store,
		Prefix:   AbuseKeyPrefix,
		Capacity: cfg.Threshold,
		Window:   cfg.Window,
		Clock:    clock,
	}
	if err := abuse.validate(); err != nil {
		return nil, err
	}

	return &Blacklist{store: store, abuse: abuse, banTTL: cfg.BanTTL}, nil
}

// Blocked reports whether addr currently has an unexpired deny-list entry.
// This is the fast path: a single GET, no counters touched.
func (b *Blacklist) Blocked(ctx context.Context, addr string) (bool, error) {
	if addr == "" {
		addr = UnknownSubject
	}
	_, present, err := b.store.Get(ctx, BlacklistKeyPrefix+addr)
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return present, nil
}

// Observe records one request from addr against the abuse counter. When the
// count crosses the threshold it writes the deny-list entry and reports
// true: the triggering request is denied along with everything that follows
// until the entry expires.
func (b *Blacklist) Observe(ctx context.Context, addr string) (bool, error) {
	if addr == "" {
		addr = UnknownSubject
	}

	res, err := b.abuse.Check(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("abuse counter: %w", err)
	}
	if res.Allowed {
		return false, nil
	}

	bannedAt := b.abuse.now().Format(time.RFC3339)
	if err := b.store.Set(ctx, BlacklistKeyPrefix+addr, bannedAt, b.banTTL); err != nil {
		// The entry could not be written, but the burst is proven; surface
		// the store failure so the caller still denies this request.
		return false, fmt.Errorf("blacklist insert: %w", err)
	}

	return true, nil
}

// BanTTL exposes the configured ban duration for denial messages.
func (b *Blacklist) BanTTL() time.Duration {
	return b.banTTL
}
