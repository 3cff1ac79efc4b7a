package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// PROMETHEUS COLLECTORS
// =============================================================================

// HTTPRequests counts served requests by route pattern and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "screentime",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, route and status.",
}, []string{"method", "route", "status"})

// HTTPDuration observes request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "screentime",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// BalanceMinutes is the last computed all-time balance.
var BalanceMinutes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "screentime",
	Name:      "balance_minutes",
	Help:      "Current screen time balance in minutes.",
})

// MonitorRefreshes counts balance monitor runs by result.
var MonitorRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "screentime",
	Subsystem: "monitor",
	Name:      "refreshes_total",
	Help:      "Total balance refreshes by result (ok, error).",
}, []string{"result"})

// instrument records HTTPRequests and HTTPDuration for every request.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
