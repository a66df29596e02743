// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LogsCreated counts new work logs by source (manual, template, reconciliation, scenario).
	LogsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Name:      "logs_created_total",
		Help:      "Work logs created, by source.",
	}, []string{"source"})

	// Reconciliations counts payslip comparisons by outcome (reconciled, mismatch, applied).
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Name:      "reconciliations_total",
		Help:      "Payslip reconciliations, by outcome.",
	}, []string{"outcome"})

	Promotions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payroll",
		Name:      "promotions_total",
		Help:      "Jobs promoted to their next rate tier.",
	})

	// StateSaves counts blob writes by result (ok, error).
	StateSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payroll",
		Name:      "state_saves_total",
		Help:      "State blob saves, by result.",
	}, []string{"result"})

	Migrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "payroll",
		Name:      "state_migrations_total",
		Help:      "Legacy state blobs upgraded at load or import.",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payroll",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTPDuration using the matched chi route pattern,
// so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
