/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request duration by route pattern
  5. CORS:       Cross-origin requests for frontend
  6. RateLimit:  Token bucket on mutating routes only (429 when empty)

ROUTE GROUPS:
  /api/*         JSON API (see handlers.go)
  /metrics       Prometheus scrape endpoint
  /healthz       Liveness

SECURITY NOTE:
  No authentication middleware. The engine is single-user; run it bound to
  localhost or behind an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/warp/payroll-engine/metrics"
	"golang.org/x/time/rate"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultRouterOptions suits local development.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	limited := RateLimit(rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst), h.log)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)

		// Reads
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}/progress", h.GetProgress)
		r.Get("/logs", h.ListLogs)
		r.Get("/templates", h.ListTemplates)
		r.Get("/settings", h.GetSettings)
		r.Get("/stats", h.GetStats)
		r.Get("/stats/buckets", h.GetBuckets)
		r.Get("/stats/pay-period", h.GetPayPeriod)
		r.Get("/selection", h.GetSelection)
		r.Get("/export", h.Export)
		r.Get("/export/state", h.ExportState)
		r.Get("/backups", h.ListBackups)
		r.Get("/scenarios", h.ListScenarios)
		r.Get("/scenarios/current", h.GetCurrentScenario)

		// Reconcile only compares, but it is a POST with a body
		r.Post("/reconcile", h.Reconcile)

		// Writes
		r.Group(func(r chi.Router) {
			r.Use(limited)

			r.Post("/jobs", h.CreateJob)
			r.Put("/jobs/{id}", h.UpdateJob)
			r.Delete("/jobs/{id}", h.DeleteJob)
			r.Post("/jobs/{id}/promote", h.PromoteJob)

			r.Post("/logs", h.CreateLog)
			r.Delete("/logs/{id}", h.DeleteLog)

			r.Post("/templates", h.CreateTemplate)
			r.Delete("/templates/{id}", h.DeleteTemplate)
			r.Post("/templates/{id}/apply", h.ApplyTemplate)

			r.Put("/settings", h.UpdateSettings)
			r.Post("/reconcile/apply", h.ApplyReconciliation)

			r.Post("/selection", h.SelectDate)
			r.Delete("/selection", h.ClearSelection)

			r.Post("/import", h.Import)
			r.Post("/backups", h.CreateBackup)
			r.Post("/scenarios/load", h.LoadScenario)
		})
	})

	return r
}

// RateLimit rejects requests with 429 once the limiter's bucket is empty.
func RateLimit(limiter *rate.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("too many requests",
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, ErrorResponse{Error: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
