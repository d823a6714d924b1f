package admission

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{
			name:       "forwarded header wins",
			remoteAddr: "10.0.0.1:4242",
			xff:        "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "first hop of forwarded chain",
			remoteAddr: "10.0.0.1:4242",
			xff:        "203.0.113.7, 10.0.0.2, 10.0.0.3",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr host without port",
			remoteAddr: "203.0.113.7:51000",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr without port is kept as-is",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name: "no attributes at all",
			want: UnknownSubject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/contact", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientAddr(r))
		})
	}
}

func TestDeviceFingerprint(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/contact", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", DeviceFingerprint(r))

	r = httptest.NewRequest("GET", "/api/contact", nil)
	r.Header.Set("User-Agent", "   ")
	assert.Equal(t, UnknownSubject, DeviceFingerprint(r))

	r = httptest.NewRequest("GET", "/api/contact", nil)
	r.Header.Del("User-Agent")
	assert.Equal(t, UnknownSubject, DeviceFingerprint(r))
}

func TestIdentityFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/contact", nil)
	r.RemoteAddr = "203.0.113.7:51000"
	r.Header.Set("User-Agent", "curl/8.0")

	id := IdentityFromRequest(r)
	assert.Equal(t, "203.0.113.7", id.Addr)
	assert.Equal(t, "curl/8.0", id.Device)
}
