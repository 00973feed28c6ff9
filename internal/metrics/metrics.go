// Package metrics defines the Prometheus collectors for the assistant and
// the HTTP middleware that feeds the request-level ones.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banking_assistant_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "banking_assistant_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "banking_assistant_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ValidatorVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banking_assistant_validator_verdicts_total",
			Help: "Validator verdicts by outcome; rejections labeled by kind",
		},
		[]string{"outcome", "reason"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "banking_assistant_query_duration_seconds",
			Help:    "Duration of database query execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "banking_assistant_llm_calls_total",
			Help: "LLM calls by agent and outcome",
		},
		[]string{"agent", "outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "banking_assistant_llm_call_duration_seconds",
			Help:    "Duration of LLM calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent"},
	)
)

// RecordVerdict counts a validator verdict.
func RecordVerdict(accepted bool, reason string) {
	if accepted {
		ValidatorVerdicts.WithLabelValues("accepted", "").Inc()
		return
	}
	ValidatorVerdicts.WithLabelValues("rejected", reason).Inc()
}

// RecordLLMCall counts an LLM call and observes its duration.
func RecordLLMCall(agentName string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LLMCallsTotal.WithLabelValues(agentName, outcome).Inc()
	LLMCallDuration.WithLabelValues(agentName).Observe(duration.Seconds())
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
