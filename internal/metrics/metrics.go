package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dundie",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dundie",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dundie",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	ledgerPosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dundie",
			Subsystem: "ledger",
			Name:      "posts_total",
			Help:      "Total number of transaction posts by outcome.",
		},
		[]string{"outcome"},
	)

	ledgerPostDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dundie",
			Subsystem: "ledger",
			Name:      "post_duration_seconds",
			Help:      "Duration of transaction posts including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	ledgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dundie",
			Subsystem: "ledger",
			Name:      "post_retries_total",
			Help:      "Total number of post attempts retried after a storage conflict.",
		},
	)

	ledgerDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dundie",
			Subsystem: "ledger",
			Name:      "balance_drift_total",
			Help:      "Cached balances found out of step with the ledger and rewritten.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerPosts,
		ledgerPostDuration,
		ledgerRetries,
		ledgerDrift,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObservePost records the outcome and latency of one PostTransaction call.
func ObservePost(outcome string, elapsed time.Duration) {
	ledgerPosts.WithLabelValues(outcome).Inc()
	ledgerPostDuration.Observe(elapsed.Seconds())
}

func IncPostRetry() {
	ledgerRetries.Inc()
}

func AddBalanceDrift(n int) {
	ledgerDrift.Add(float64(n))
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Routes are labelled by chi route pattern so path parameters do not explode
// label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
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
