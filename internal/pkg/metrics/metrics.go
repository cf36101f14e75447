// Package metrics holds the Prometheus collectors shared by the storefront binaries.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)

	// ReviewsSubmitted counts review submissions by outcome
	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_reviews_submitted_total",
			Help: "Review submissions by outcome",
		},
		[]string{"outcome"},
	)

	// TxRetries counts transaction attempts retried after a serialization conflict
	TxRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_tx_retries_total",
		Help: "Transaction attempts retried after a serialization failure or deadlock",
	})

	// RatingDriftRepaired counts aggregates the reconciler had to rewrite
	RatingDriftRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_rating_drift_repaired_total",
		Help: "Product rating aggregates repaired by the reconciler",
	})

	// CategoryMutations counts category writes by operation and outcome
	CategoryMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_category_mutations_total",
			Help: "Category mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// CircuitBreakerState tracks breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CacheLookups counts cache hits and misses by cache name
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)
)

// Outcome maps an error to a metric label
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by chi route pattern
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := "unknown"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := strconv.Itoa(rw.statusCode)

			httpRequestsTotal.WithLabelValues(service, r.Method, route, status).Inc()
			httpRequestDuration.WithLabelValues(service, r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}
