package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistObserveBansAboveThreshold(t *testing.T) {
	store, server := newTestStore(t)

	cfg := BlacklistConfig{Threshold: 5, Window: time.Minute, BanTTL: 24 * time.Hour}
	blacklist, err := NewBlacklist(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()

	// The threshold itself is still tolerated
	for i := 0; i < 5; i++ {
		banned, err := blacklist.Observe(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.False(t, banned, "request %d should not trigger a ban", i+1)
	}

	// The request that crosses the threshold is denied and banned
	banned, err := blacklist.Observe(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, banned)

	blocked, err := blacklist.Blocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The deny-list entry carries the ban TTL, not the abuse window
	ttl := server.TTL(BlacklistKeyPrefix + "203.0.113.7")
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestBlacklistBlockedFastPath(t *testing.T) {
	store, server := newTestStore(t)

	blacklist, err := NewBlacklist(store, DefaultBlacklistConfig(), nil)
	require.NoError(t, err)

	ctx := context.Background()

	blocked, err := blacklist.Blocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, blocked)

	// Blocked never touches the abuse counter
	_, err = server.Get(AbuseKeyPrefix + "203.0.113.7")
	require.Error(t, err)

	require.NoError(t, server.Set(BlacklistKeyPrefix+"203.0.113.7", "2026-03-14T09:00:00Z"))

	blocked, err = blacklist.Blocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlacklistBanExpires(t *testing.T) {
	store, server := newTestStore(t)

	cfg := BlacklistConfig{Threshold: 1, Window: time.Minute, BanTTL: time.Hour}
	blacklist, err := NewBlacklist(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = blacklist.Observe(ctx, "203.0.113.7")
	require.NoError(t, err)
	banned, err := blacklist.Observe(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, banned)

	server.FastForward(time.Hour + time.Second)

	blocked, err := blacklist.Blocked(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlacklistIsolatesAddresses(t *testing.T) {
	store, _ := newTestStore(t)

	cfg := BlacklistConfig{Threshold: 1, Window: time.Minute, BanTTL: time.Hour}
	blacklist, err := NewBlacklist(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = blacklist.Observe(ctx, "203.0.113.7")
	require.NoError(t, err)
	banned, err := blacklist.Observe(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, banned)

	blocked, err := blacklist.Blocked(ctx, "203.0.113.8")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlacklistStoreFailureSurfaces(t *testing.T) {
	store, server := newTestStore(t)

	blacklist, err := NewBlacklist(store, DefaultBlacklistConfig(), nil)
	require.NoError(t, err)

	server.Close()

	_, err = blacklist.Blocked(context.Background(), "203.0.113.7")
	require.Error(t, err)

	_, err = blacklist.Observe(context.Background(), "203.0.113.7")
	require.Error(t, err)
}

func TestNewBlacklistRejectsInvalidConfig(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := NewBlacklist(store, BlacklistConfig{Threshold: 50, Window: time.Minute, BanTTL: 0}, nil)
	require.Error(t, err)

	_, err = NewBlacklist(store, BlacklistConfig{Threshold: 0, Window: time.Minute, BanTTL: time.Hour}, nil)
	require.Error(t, err)
}
