// Package httptransport assembles the public HTTP surface: shared middleware,
// probes, metrics and the claim routes.
package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	claimhandler "placeclaim/internal/claim/handler"
	"placeclaim/internal/platform/health"
	"placeclaim/internal/platform/metrics"
	"placeclaim/pkg/platform/middleware/admin"
	"placeclaim/pkg/platform/middleware/auth"
	"placeclaim/pkg/platform/middleware/metadata"
	"placeclaim/pkg/platform/middleware/request"
	"placeclaim/pkg/platform/middleware/requesttime"
)

// maxBodyBytes bounds JSON request bodies; claim payloads are small.
const maxBodyBytes = 64 << 10

// Deps holds everything the router mounts.
type Deps struct {
	Claims         *claimhandler.Handler
	Health         *health.Handler
	Metrics        *metrics.Metrics
	Tokens         auth.JWTValidator
	AdminToken     string
	TrustedProxies []netip.Prefix
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the application router.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(metadata.Config{TrustedProxies: deps.TrustedProxies}).Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(request.BodyLimit(maxBodyBytes))
		r.Use(auth.RequireAuth(deps.Tokens, logger))
		deps.Claims.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		r.Use(request.BodyLimit(maxBodyBytes))
		r.Use(admin.RequireAdminToken(deps.AdminToken, logger))
		deps.Claims.RegisterAdmin(r)
	})

	return r
}
