package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: how many times we served a result from the exact cache.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interaction_cache_hits_total",
			Help: "Total number of interaction results served from cache.",
		},
	)

	// Counter: how many concurrent requests joined an in-flight computation
	// instead of running the pipeline themselves.
	InflightJoinsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interaction_inflight_joins_total",
			Help: "Total number of requests deduplicated onto an in-flight computation.",
		},
	)

	// Counter: retries performed against a modality collaborator.
	ModalityRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modality_retries_total",
			Help: "Total retry attempts per modality operation.",
		},
		[]string{"operation"},
	)

	// Counter: pipeline stage transitions, including terminal failures.
	StageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_transitions_total",
			Help: "Total pipeline stage transitions.",
		},
		[]string{"stage"},
	)

	// Histogram: gateway HTTP latency in seconds.
	GatewayLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_latency_seconds",
			Help:    "HTTP request latency for the gateway in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"path", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		CacheHitsTotal,
		InflightJoinsTotal,
		ModalityRetriesTotal,
		StageTransitionsTotal,
		GatewayLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures gateway latency for each HTTP request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// capture status code
		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		duration := time.Since(start).Seconds()

		path := r.URL.Path
		method := r.Method
		status := strconv.Itoa(rec.statusCode)

		GatewayLatencySeconds.
			WithLabelValues(path, method, status).
			Observe(duration)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
