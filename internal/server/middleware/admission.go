package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sitegate/sitegate/internal/admission"
	"github.com/sitegate/sitegate/internal/metrics"
	"github.com/sitegate/sitegate/internal/observability"
)

// Fixed denial messages. Blacklisted clients get no quota detail so probing
// reveals nothing beyond the ban itself.
const (
	msgAccessDenied = "Access denied"
	msgBlocked      = "Too many requests. Your IP has been blocked for 24 hours."
	msgTryLater     = "Too many requests. Please try again later."
)

// denialResponse is the compact body every admission denial uses. Reset is
// only present on per-route quota denials.
type denialResponse struct {
	Error string `json:"error"`
	Reset int64  `json:"reset,omitempty"`
}

// Interceptor is the single entry point in front of protected route
// prefixes. It consults the blacklist, feeds the abuse counter, and for the
// contact endpoint runs the multi-strategy gate, all before the request can
// reach business logic. Store failures deny: an unreachable store cannot
// prove a request is within quota.
type Interceptor struct {
	Blacklist *admission.Blacklist
	Gate      *admission.Gate

	// ProtectedPrefixes are matched against the request path; anything else
	// passes through untouched.
	ProtectedPrefixes []string

	// ContactPath is the one endpoint additionally covered by the gate.
	ContactPath string
}

// Handler wires the interceptor into a chi middleware chain.
func (i *Interceptor) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !i.protected(path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		addr := admission.ClientAddr(r)

		blocked, err := i.Blacklist.Blocked(ctx, addr)
		if err != nil {
			i.denyStoreFailure(w, r, addr, err)
			return
		}
		if blocked {
			metrics.RecordBlacklistHit()
			metrics.RecordAdmission(path, false)
			i.logDenial(r, addr, "blacklist")
			writeDenial(w, http.StatusForbidden, denialResponse{Error: msgAccessDenied})
			return
		}

		banned, err := i.Blacklist.Observe(ctx, addr)
		if err != nil {
			i.denyStoreFailure(w, r, addr, err)
			return
		}
		if banned {
			metrics.RecordBlacklistInsert()
			metrics.RecordAdmission(path, false)
			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Source address blacklisted",
					zap.String("addr", addr),
					zap.Duration("ban_ttl", i.Blacklist.BanTTL()),
					zap.String("request_id", GetRequestID(ctx)))
			}
			writeDenial(w, http.StatusTooManyRequests, denialResponse{Error: msgBlocked})
			return
		}

		if i.gated(r) {
			decision, err := i.Gate.Evaluate(ctx, admission.IdentityFromRequest(r))
			if err != nil {
				i.denyStoreFailure(w, r, addr, err)
				return
			}
			if !decision.Allowed {
				metrics.RecordDenial(decision.DeniedBy)
				metrics.RecordAdmission(path, false)
				i.logDenial(r, addr, decision.DeniedBy)
				writeDenial(w, http.StatusTooManyRequests, denialResponse{
					Error: decision.Message,
					Reset: decision.ResetAt.Unix(),
				})
				return
			}
		}

		setSecurityHeaders(w.Header())
		metrics.RecordAdmission(path, true)
		next.ServeHTTP(w, r)
	})
}

func (i *Interceptor) protected(path string) bool {
	for _, prefix := range i.ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (i *Interceptor) gated(r *http.Request) bool {
	return i.Gate != nil && r.Method == http.MethodPost && r.URL.Path == i.ContactPath
}

// denyStoreFailure fails closed. The body is the generic rate-limit message;
// store details stay in the logs.
func (i *Interceptor) denyStoreFailure(w http.ResponseWriter, r *http.Request, addr string, err error) {
	metrics.RecordAdmission(r.URL.Path, false)
	if observability.ServerLogger != nil {
		observability.ServerLogger.Error("Admission check failed, denying request",
			zap.String("addr", addr),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
	}
	writeDenial(w, http.StatusTooManyRequests, denialResponse{Error: msgTryLater})
}

func (i *Interceptor) logDenial(r *http.Request, addr, reason string) {
	if observability.ServerLogger == nil {
		return
	}
	observability.ServerLogger.Warn("Request denied",
		zap.String("addr", addr),
		zap.String("path", r.URL.Path),
		zap.String("reason", reason),
		zap.String("request_id", GetRequestID(r.Context())))
}

func writeDenial(w http.ResponseWriter, status int, body denialResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
