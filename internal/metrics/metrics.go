// Package metrics holds the Prometheus collectors for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staycation_http_requests_total",
		Help: "Total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "staycation_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staycation_bookings_created_total",
		Help: "Total number of bookings created",
	})

	DeliverableTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staycation_deliverable_transitions_total",
		Help: "Deliverable status changes by target status",
	}, []string{"status"})

	LowStockItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "staycation_low_stock_items",
		Help: "Inventory items at or below their reorder level",
	})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staycation_job_runs_total",
		Help: "Background job runs by job and result",
	}, []string{"job", "result"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware counts requests by the matched mux pattern, which keeps label
// cardinality bounded. It must wrap the ServeMux directly so the pattern set
// during routing is visible on the same request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
