package admission

import (
	"net"
	"net/http"
	"strings"
)

// UnknownSubject is the bucket shared by every client whose identifying
// attribute is missing. Clients can trivially land here by omitting headers;
// that collapses them into one quota, which is the documented degradation,
// not an error.
const UnknownSubject = "unknown"

// Identity carries the per-request attributes quotas are keyed by.
type Identity struct {
	Addr   string
	Device string
}

// IdentityFromRequest derives the quota subjects for a request.
func IdentityFromRequest(r *http.Request) Identity {
	return Identity{
		Addr:   ClientAddr(r),
		Device: DeviceFingerprint(r),
	}
}

// ClientAddr returns the source address of a request: the first hop of
// X-Forwarded-For when present, otherwise the transport peer address.
func ClientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return UnknownSubject
}

// DeviceFingerprint returns the device subject for a request. It is the raw
// User-Agent value, so a hostile client can spoof or omit it; spoofed agents
// get their own bucket and omitted ones share UnknownSubject.
func DeviceFingerprint(r *http.Request) string {
	if ua := strings.TrimSpace(r.Header.Get("User-Agent")); ua != "" {
		return ua
	}
	return UnknownSubject
}
