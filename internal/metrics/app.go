package metrics

import (
	"time"

	"github.com/sitegate/sitegate/internal/observability"
)

// Admission-control metrics following Prometheus conventions
const (
	AdmissionTotal        = "admission_requests_total"
	AdmissionDeniedTotal  = "admission_denied_total"
	BlacklistHitsTotal    = "admission_blacklist_hits_total"
	BlacklistInsertsTotal = "admission_blacklist_inserts_total"
	StoreFailuresTotal    = "admission_store_failures_total"
	StoreCallDuration     = "admission_store_call_duration_ms"
)

// RecordAdmission records an interceptor verdict for a protected path.
func RecordAdmission(path string, allowed bool) {
	status := "allowed"
	if !allowed {
		status = "denied"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AdmissionTotal,
			1,
			map[string]string{
				"path":   path,
				"status": status,
			},
		)
	}
}

// RecordDenial records which strategy denied a request.
func RecordDenial(strategy string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			AdmissionDeniedTotal,
			1,
			map[string]string{
				"strategy": strategy,
			},
		)
	}
}

// RecordBlacklistHit records a request rejected on the blacklist fast path.
func RecordBlacklistHit() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BlacklistHitsTotal,
			1,
			nil,
		)
	}
}

// RecordBlacklistInsert records a new temporary ban.
func RecordBlacklistInsert() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BlacklistInsertsTotal,
			1,
			nil,
		)
	}
}

// RecordStoreFailure records a counter-store error (these deny requests).
func RecordStoreFailure(operation string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			StoreFailuresTotal,
			1,
			map[string]string{
				"operation": operation,
			},
		)
	}
}

// RecordStoreCall records the latency of a counter-store round trip.
func RecordStoreCall(operation string, duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			StoreCallDuration,
			duration,
			map[string]string{
				"operation": operation,
			},
		)
	}
}
