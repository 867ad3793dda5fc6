package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRateLimit is the per-IP request allowance per minute.
const DefaultRateLimit = 60

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; search, destination and cache routes require bearer auth.
// Rate limiting is applied globally per IP; rateLimit <= 0 uses DefaultRateLimit.
func NewRouter(handlers *Handlers, token string, rateLimit int, db, redisClient Pinger, log *slog.Logger) *chi.Mux {
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(httprate.LimitByIP(rateLimit, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Post("/api/v1/search", handlers.Search)
		r.Get("/api/v1/destinations/{code}", handlers.GetDestination)
		r.Get("/api/v1/cache/stats", handlers.CacheStats)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
