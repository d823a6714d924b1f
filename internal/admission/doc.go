// Package admission decides whether an inbound request to a protected route
// may proceed. All quota state lives in a shared external counter store, never
// in process memory, so verdicts are consistent across server instances.
//
// Layers, innermost first:
//
//   - CounterStore: atomic single-key operations (INCR, EXPIRE, GET, SET)
//     against Redis, each bounded by a per-call timeout
//   - WindowLimiter: fixed-window event counting per subject key
//   - Gate: several limiters keyed by different request attributes, combined
//     with short-circuit AND
//   - Blacklist: burst detection per source address with temporary-ban
//     escalation
//
// Any store failure surfaces as an error distinct from a denial; callers are
// expected to fail closed.
package admission
