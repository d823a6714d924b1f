package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/sitegate/sitegate/internal/errors"
	"github.com/sitegate/sitegate/internal/observability"
	"github.com/sitegate/sitegate/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(opts Options) {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	if opts.Store == nil {
		return
	}

	contact := &handlers.ContactHandler{
		Store:            opts.Store,
		Mailer:           opts.Mailer,
		MaxMessageLength: opts.Contact.MaxMessageLength,
		AdminEmail:       opts.Contact.AdminEmail,
	}
	admin := &handlers.AdminHandler{Store: opts.Store}

	s.router.Post("/api/contact", contact.Submit)

	// Product catalog is public read-only
	s.router.Get("/api/products", admin.ListProducts)

	s.registerAdminRoutes(opts.AdminToken, admin)
}

// registerAdminRoutes mounts the admin surface when a bearer token is configured
func (s *Server) registerAdminRoutes(token string, admin *handlers.AdminHandler) {
	logger := observability.ServerLogger

	if token == "" {
		if logger != nil {
			logger.Debug("Admin endpoints disabled (no admin token set)")
		}
		return
	}

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(requireBearerToken(token))

		r.Get("/messages", admin.ListMessages)
		r.Post("/messages/{id}/read", admin.MarkMessageRead)

		r.Get("/products", admin.ListProducts)
		r.Post("/products", admin.CreateProduct)
		r.Delete("/products/{id}", admin.DeleteProduct)
	})

	if logger != nil {
		logger.Info("Admin endpoints enabled",
			zap.String("path", "/api/admin"),
			zap.String("auth", "bearer token"))
	}
}

// requireBearerToken rejects requests whose Authorization header does not
// carry the configured token. Comparison is constant time.
func requireBearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				HandleError(w, r, apperrors.NewUnauthorizedError("Invalid or missing bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
