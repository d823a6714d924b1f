package admission

import (
	"context"
	"fmt"
	"time"
)

// Counter key prefixes per strategy.
const (
	GlobalKeyPrefix  = "ratelimit:global:"
	AddressKeyPrefix = "ratelimit:ip:"
	DeviceKeyPrefix  = "ratelimit:device:"
)

// Strategy names reported in denials and metrics.
const (
	StrategyGlobal  = "global"
	StrategyAddress = "address"
	StrategyDevice  = "device"
)

// Quota is one strategy's budget.
type Quota struct {
	Capacity int64
	Window   time.Duration
}

// GateConfig holds the three strategy budgets.
type GateConfig struct {
	Global     Quota
	PerAddress Quota
	PerDevice  Quota
}

// DefaultGateConfig mirrors the production contact-form budgets: a global
// burst brake plus slow per-identity quotas.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Global:     Quota{Capacity: 30, Window: time.Minute},
		PerAddress: Quota{Capacity: 4, Window: 24 * time.Hour},
		PerDevice:  Quota{Capacity: 4, Window: 24 * time.Hour},
	}
}

// Strategy pairs a limiter with the request attribute it keys on.
type Strategy struct {
	Name    string
	Limiter *WindowLimiter
	Subject func(Identity) string
	Message string
}

// Decision is the gate's verdict for a request.
type Decision struct {
	Allowed  bool
	DeniedBy string
	Message  string
	ResetAt  time.Time
}

// Gate evaluates a request against several independent limiters and denies
// if any of them denies.
type Gate struct {
	strategies []Strategy
}

// NewGate builds the standard three-strategy gate. Order matters: the global
// aggregate is checked first so obvious abuse is filtered before spending
// round trips on the per-identity counters, and the first denial wins.
func NewGate(store CounterStore, cfg GateConfig, clock func() time.Time) (*Gate, error) {
	strategies := []Strategy{
		{
			Name: StrategyGlobal,
			Limiter: &WindowLimiter{
				Store:    store,
				Prefix:   GlobalKeyPrefix,
				Capacity: cfg.Global.Capacity,
				Window:   cfg.Global.Window,
				Clock:    clock,
			},
			Subject: func(id Identity) string { return id.Addr },
			Message: "Too many requests. Please try again later.",
		},
		{
			Name: StrategyAddress,
			Limiter: &WindowLimiter{
				Store:    store,
				Prefix:   AddressKeyPrefix,
				Capacity: cfg.PerAddress.Capacity,
				Window:   cfg.PerAddress.Window,
				Clock:    clock,
			},
			Subject: func(id Identity) string { return id.Addr },
			Message: fmt.Sprintf("Daily limit exceeded. You can send %d messages per day.", cfg.PerAddress.Capacity),
		},
		{
			Name: StrategyDevice,
			Limiter: &WindowLimiter{
				Store:    store,
				Prefix:   DeviceKeyPrefix,
				Capacity: cfg.PerDevice.Capacity,
				Window:   cfg.PerDevice.Window,
				Clock:    clock,
			},
			Subject: func(id Identity) string { return id.Device },
			Message: fmt.Sprintf("Device limit exceeded. Maximum %d messages per day per device.", cfg.PerDevice.Capacity),
		},
	}

	for _, s := range strategies {
		if err := s.Limiter.validate(); err != nil {
			return nil, err
		}
	}

	return &Gate{strategies: strategies}, nil
}

// Evaluate runs the strategies in order, short-circuiting on the first
// denial so its reset time reaches the caller. A store failure aborts
// evaluation with an error; it is never reported as allowed.
func (g *Gate) Evaluate(ctx context.Context, id Identity) (Decision, error) {
	for _, s := range g.strategies {
		res, err := s.Limiter.Check(ctx, s.Subject(id))
		if err != nil {
			return Decision{}, fmt.Errorf("%s strategy: %w", s.Name, err)
		}
		if !res.Allowed {
			return Decision{
				Allowed:  false,
				DeniedBy: s.Name,
				Message:  s.Message,
				ResetAt:  res.ResetAt,
			}, nil
		}
	}

	return Decision{Allowed: true}, nil
}
