package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateAllowsWithinAllBudgets(t *testing.T) {
	store, _ := newTestStore(t)

	gate, err := NewGate(store, DefaultGateConfig(), nil)
	require.NoError(t, err)

	decision, err := gate.Evaluate(context.Background(), Identity{Addr: "203.0.113.7", Device: "curl/8.0"})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.DeniedBy)
}

func TestGateDeniesOnPerAddressQuota(t *testing.T) {
	store, _ := newTestStore(t)

	cfg := GateConfig{
		Global:     Quota{Capacity: 100, Window: time.Minute},
		PerAddress: Quota{Capacity: 2, Window: 24 * time.Hour},
		PerDevice:  Quota{Capacity: 100, Window: 24 * time.Hour},
	}
	gate, err := NewGate(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	id := Identity{Addr: "203.0.113.7", Device: "curl/8.0"}

	for i := 0; i < 2; i++ {
		decision, err := gate.Evaluate(ctx, id)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := gate.Evaluate(ctx, id)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, StrategyAddress, decision.DeniedBy)
	assert.Equal(t, "Daily limit exceeded. You can send 2 messages per day.", decision.Message)
	assert.False(t, decision.ResetAt.IsZero())
}

func TestGateDeniesOnPerDeviceQuota(t *testing.T) {
	store, _ := newTestStore(t)

	cfg := GateConfig{
		Global:     Quota{Capacity: 100, Window: time.Minute},
		PerAddress: Quota{Capacity: 100, Window: 24 * time.Hour},
		PerDevice:  Quota{Capacity: 1, Window: 24 * time.Hour},
	}
	gate, err := NewGate(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()

	decision, err := gate.Evaluate(ctx, Identity{Addr: "203.0.113.7", Device: "bot/1.0"})
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// Same device from a different address still exhausts the device budget.
	decision, err = gate.Evaluate(ctx, Identity{Addr: "203.0.113.8", Device: "bot/1.0"})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, StrategyDevice, decision.DeniedBy)
	assert.Equal(t, "Device limit exceeded. Maximum 1 messages per day per device.", decision.Message)
}

func TestGateGlobalDenialWinsOverLaterStrategies(t *testing.T) {
	store, _ := newTestStore(t)

	cfg := GateConfig{
		Global:     Quota{Capacity: 1, Window: time.Minute},
		PerAddress: Quota{Capacity: 1, Window: 24 * time.Hour},
		PerDevice:  Quota{Capacity: 1, Window: 24 * time.Hour},
	}
	gate, err := NewGate(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	id := Identity{Addr: "203.0.113.7", Device: "curl/8.0"}

	decision, err := gate.Evaluate(ctx, id)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// Every budget is now exhausted; the global strategy is evaluated first
	// and reports the denial.
	decision, err = gate.Evaluate(ctx, id)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, StrategyGlobal, decision.DeniedBy)
	assert.Equal(t, "Too many requests. Please try again later.", decision.Message)
}

func TestGateShortCircuitLeavesLaterCountersUntouched(t *testing.T) {
	store, server := newTestStore(t)

	cfg := GateConfig{
		Global:     Quota{Capacity: 1, Window: time.Minute},
		PerAddress: Quota{Capacity: 10, Window: 24 * time.Hour},
		PerDevice:  Quota{Capacity: 10, Window: 24 * time.Hour},
	}
	gate, err := NewGate(store, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	id := Identity{Addr: "203.0.113.7", Device: "curl/8.0"}

	_, err = gate.Evaluate(ctx, id)
	require.NoError(t, err)

	decision, err := gate.Evaluate(ctx, id)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	// The denied request consumed a global slot but never reached the
	// per-address counter.
	count, err := server.Get(AddressKeyPrefix + "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "1", count)
}

func TestGateStoreFailureIsAnError(t *testing.T) {
	store, server := newTestStore(t)

	gate, err := NewGate(store, DefaultGateConfig(), nil)
	require.NoError(t, err)

	server.Close()

	_, err = gate.Evaluate(context.Background(), Identity{Addr: "203.0.113.7", Device: "curl/8.0"})
	require.Error(t, err)
}

func TestNewGateRejectsInvalidBudgets(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := NewGate(store, GateConfig{
		Global:     Quota{Capacity: 0, Window: time.Minute},
		PerAddress: Quota{Capacity: 4, Window: 24 * time.Hour},
		PerDevice:  Quota{Capacity: 4, Window: 24 * time.Hour},
	}, nil)
	require.Error(t, err)

	_, err = NewGate(nil, DefaultGateConfig(), nil)
	require.Error(t, err)
}
