package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitegate/sitegate/internal/admission"
)

func newTestInterceptor(t *testing.T, gateCfg admission.GateConfig, blCfg admission.BlacklistConfig) (*Interceptor, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := admission.NewRedisStore(client, time.Second)

	gate, err := admission.NewGate(store, gateCfg, nil)
	require.NoError(t, err)

	blacklist, err := admission.NewBlacklist(store, blCfg, nil)
	require.NoError(t, err)

	return &Interceptor{
		Blacklist:         blacklist,
		Gate:              gate,
		ProtectedPrefixes: []string{"/api/contact", "/api/admin"},
		ContactPath:       "/api/contact",
	}, server
}

func permissiveGateConfig() admission.GateConfig {
	return admission.GateConfig{
		Global:     admission.Quota{Capacity: 1000, Window: time.Minute},
		PerAddress: admission.Quota{Capacity: 1000, Window: 24 * time.Hour},
		PerDevice:  admission.Quota{Capacity: 1000, Window: 24 * time.Hour},
	}
}

func permissiveBlacklistConfig() admission.BlacklistConfig {
	return admission.BlacklistConfig{Threshold: 1000, Window: time.Minute, BanTTL: 24 * time.Hour}
}

func serveThrough(i *Interceptor, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	i.Handler(next).ServeHTTP(rec, r)
	return rec
}

func decodeDenial(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestInterceptorIgnoresUnprotectedPaths(t *testing.T) {
	interceptor, server := newTestInterceptor(t, permissiveGateConfig(), permissiveBlacklistConfig())

	// Even an outage must not affect unprotected paths
	server.Close()

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.RemoteAddr = "203.0.113.7:51000"

	rec := serveThrough(interceptor, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))
}

func TestInterceptorRejectsBlacklistedAddress(t *testing.T) {
	interceptor, server := newTestInterceptor(t, permissiveGateConfig(), permissiveBlacklistConfig())

	require.NoError(t, server.Set(admission.BlacklistKeyPrefix+"203.0.113.7", "2026-03-14T09:00:00Z"))

	r := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
	r.RemoteAddr = "203.0.113.7:51000"

	rec := serveThrough(interceptor, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeDenial(t, rec)
	assert.Equal(t, "Access denied", body["error"])
	assert.NotContains(t, body, "reset")

	// Blacklisted requests never reach the abuse counter
	_, err := server.Get(admission.AbuseKeyPrefix + "203.0.113.7")
	require.Error(t, err)
}

func TestInterceptorEscalatesAbusiveAddress(t *testing.T) {
	blCfg := admission.BlacklistConfig{Threshold: 5, Window: time.Minute, BanTTL: 24 * time.Hour}
	interceptor, _ := newTestInterceptor(t, permissiveGateConfig(), blCfg)

	newRequest := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
		r.RemoteAddr = "203.0.113.7:51000"
		return r
	}

	for i := 0; i < 5; i++ {
		rec := serveThrough(interceptor, newRequest())
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	// The request that crosses the threshold is denied and the address banned
	rec := serveThrough(interceptor, newRequest())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeDenial(t, rec)
	assert.Equal(t, "Too many requests. Your IP has been blocked for 24 hours.", body["error"])

	// Every later request hits the blacklist fast path
	rec = serveThrough(interceptor, newRequest())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body = decodeDenial(t, rec)
	assert.Equal(t, "Access denied", body["error"])
}

func TestInterceptorGatesContactSubmissions(t *testing.T) {
	gateCfg := admission.GateConfig{
		Global:     admission.Quota{Capacity: 1000, Window: time.Minute},
		PerAddress: admission.Quota{Capacity: 2, Window: 24 * time.Hour},
		PerDevice:  admission.Quota{Capacity: 1000, Window: 24 * time.Hour},
	}
	interceptor, _ := newTestInterceptor(t, gateCfg, permissiveBlacklistConfig())

	newSubmit := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		r.RemoteAddr = "203.0.113.7:51000"
		r.Header.Set("User-Agent", "curl/8.0")
		return r
	}

	for i := 0; i < 2; i++ {
		rec := serveThrough(interceptor, newSubmit())
		require.Equal(t, http.StatusOK, rec.Code, "submission %d should pass", i+1)
	}

	rec := serveThrough(interceptor, newSubmit())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeDenial(t, rec)
	assert.Equal(t, "Daily limit exceeded. You can send 2 messages per day.", body["error"])

	reset, ok := body["reset"].(float64)
	require.True(t, ok, "denial must carry a reset timestamp")
	assert.Greater(t, int64(reset), time.Now().Unix())
}

func TestInterceptorGateOnlyCoversContactPosts(t *testing.T) {
	gateCfg := admission.GateConfig{
		Global:     admission.Quota{Capacity: 1, Window: time.Minute},
		PerAddress: admission.Quota{Capacity: 1, Window: 24 * time.Hour},
		PerDevice:  admission.Quota{Capacity: 1, Window: 24 * time.Hour},
	}
	interceptor, server := newTestInterceptor(t, gateCfg, permissiveBlacklistConfig())

	// GET on the contact path is not gated
	r := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	r.RemoteAddr = "203.0.113.7:51000"
	rec := serveThrough(interceptor, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Other protected paths are not gated either
	r = httptest.NewRequest(http.MethodPost, "/api/admin/products", nil)
	r.RemoteAddr = "203.0.113.7:51000"
	rec = serveThrough(interceptor, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	// No gate counters were consumed
	_, err := server.Get(admission.GlobalKeyPrefix + "203.0.113.7")
	require.Error(t, err)
}

func TestInterceptorSetsSecurityHeadersOnAdmission(t *testing.T) {
	interceptor, _ := newTestInterceptor(t, permissiveGateConfig(), permissiveBlacklistConfig())

	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.RemoteAddr = "203.0.113.7:51000"
	r.Header.Set("User-Agent", "curl/8.0")

	rec := serveThrough(interceptor, r)
	require.Equal(t, http.StatusOK, rec.Code)

	h := rec.Header()
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Equal(t, "1; mode=block", h.Get("X-XSS-Protection"))
	assert.NotEmpty(t, h.Get("Content-Security-Policy"))
}

func TestInterceptorFailsClosedOnStoreOutage(t *testing.T) {
	interceptor, server := newTestInterceptor(t, permissiveGateConfig(), permissiveBlacklistConfig())

	server.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.RemoteAddr = "203.0.113.7:51000"

	rec := serveThrough(interceptor, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeDenial(t, rec)
	assert.Equal(t, "Too many requests. Please try again later.", body["error"])
}

func TestInterceptorKeysOnForwardedAddress(t *testing.T) {
	blCfg := admission.BlacklistConfig{Threshold: 2, Window: time.Minute, BanTTL: 24 * time.Hour}
	interceptor, _ := newTestInterceptor(t, permissiveGateConfig(), blCfg)

	newRequest := func(xff string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil)
		r.RemoteAddr = "10.0.0.1:4242"
		r.Header.Set("X-Forwarded-For", xff)
		return r
	}

	for i := 0; i < 2; i++ {
		rec := serveThrough(interceptor, newRequest("203.0.113.7"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serveThrough(interceptor, newRequest("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different forwarded address behind the same proxy is unaffected
	rec = serveThrough(interceptor, newRequest("203.0.113.8"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
