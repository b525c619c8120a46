// Package metrics provides Prometheus instrumentation for scoring, bulk
// batches and the HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fraudguard/internal/models"
)

const namespace = "fraudguard"

var (
	// EvaluationsTotal counts scoring results by source and risk level.
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Scored transactions by result source and risk level.",
		},
		[]string{"source", "risk_level"},
	)

	// RemoteCallDuration observes scoring service latency by outcome.
	RemoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of calls to the remote scoring service.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)

	// BreakerState is 0 closed, 0.5 half-open, 1 open.
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Scoring service circuit breaker state (0=closed, 0.5=half-open, 1=open).",
		},
		[]string{"breaker"},
	)

	BulkBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_batches_total",
			Help:      "Bulk analysis batches by outcome.",
		},
		[]string{"outcome"},
	)

	BulkRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_rows_total",
			Help:      "Bulk rows by result (scored or error).",
		},
		[]string{"result"},
	)

	BulkBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bulk_batch_duration_seconds",
			Help:      "Wall time of completed bulk analysis batches.",
			Buckets:   []float64{.05, .1, .5, 1, 5, 10, 30, 60, 120},
		},
	)

	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route pattern, and status class.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal,
		RemoteCallDuration,
		BreakerState,
		BulkBatchesTotal,
		BulkRowsTotal,
		BulkBatchDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

func RecordEvaluation(r models.ScoringResult) {
	EvaluationsTotal.WithLabelValues(string(r.Source), string(r.RiskLevel)).Inc()
}

func ObserveRemoteCall(d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RemoteCallDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func RecordBreakerState(name, state string) {
	BreakerState.WithLabelValues(name).Set(breakerStateValue(state))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 0.5
	case "open":
		return 1
	default:
		return -1
	}
}

// RecordBatch counts a finished batch. scored and failed are only added for
// batches that reached aggregation.
func RecordBatch(outcome string, scored, failed int, d time.Duration) {
	BulkBatchesTotal.WithLabelValues(outcome).Inc()
	if scored > 0 {
		BulkRowsTotal.WithLabelValues("scored").Add(float64(scored))
	}
	if failed > 0 {
		BulkRowsTotal.WithLabelValues("error").Add(float64(failed))
	}
	if outcome == "completed" {
		BulkBatchDuration.Observe(d.Seconds())
	}
}

func ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, statusBucket(status)).Inc()
}

// Handler serves the default registry for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusBucket groups HTTP status codes into classes (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
