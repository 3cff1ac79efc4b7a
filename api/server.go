/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in 5xx logs
  2. RealIP:     Client address behind a proxy
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Timeout:    Cancels the request context after RouterConfig.Timeout
  6. CORS:       Cross-origin requests for a browser frontend
  7. instrument: Prometheus request counters and latency

ROUTE GROUPS:
  /                   Version
  /health             Liveness
  /metrics            Prometheus exposition
  /adjustment-types/* Adjustment type management
  /adjustments/*      Adjustment management
  /time-entries/*     Time entry management
  /time/*             Balance and timeline

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/screentime/serve.go: Server startup
*/
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: false,
	}))
	r.Use(instrument)

	r.Get("/", h.GetVersion)
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/adjustment-types", func(r chi.Router) {
		r.Get("/", h.ListAdjustmentTypes)
		r.Post("/", h.CreateAdjustmentType)
		r.Get("/{id}", h.GetAdjustmentType)
		r.Delete("/{id}", h.DeleteAdjustmentType)
	})

	r.Route("/adjustments", func(r chi.Router) {
		r.Get("/", h.ListAdjustments)
		r.Post("/", h.CreateAdjustment)
		r.Get("/{id}", h.GetAdjustment)
		r.Delete("/{id}", h.DeleteAdjustment)
	})

	r.Route("/time-entries", func(r chi.Router) {
		r.Get("/", h.ListTimeEntries)
		r.Post("/", h.CreateTimeEntry)
		r.Get("/{id}", h.GetTimeEntry)
		r.Delete("/{id}", h.DeleteTimeEntry)
	})

	r.Route("/time", func(r chi.Router) {
		r.Get("/", h.GetBalance)
		r.Get("/timeline", h.GetTimeline)
	})

	return r
}
