// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Batch metrics
	BatchesStarted   prometheus.Counter
	BatchesCompleted *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec

	// Trial metrics
	TrialsExecuted prometheus.Counter
	TrialsFailed   prometheus.Counter

	// Job metrics
	JobsSubmitted *prometheus.CounterVec
	JobsActive    prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "montecarlo_lab"
	}

	return &Metrics{
		// Batch metrics
		BatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "started_total",
			Help:      "Total number of Monte Carlo batches started",
		}),
		BatchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "completed_total",
			Help:      "Total number of Monte Carlo batches finished by status",
		}, []string{"status"}),
		BatchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of Monte Carlo batches by method",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"method"}),

		// Trial metrics
		TrialsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trials",
			Name:      "executed_total",
			Help:      "Total number of Monte Carlo trials executed",
		}),
		TrialsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trials",
			Name:      "failed_total",
			Help:      "Total number of Monte Carlo trials that failed",
		}),

		// Job metrics
		JobsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Total number of jobs submitted by strategy",
		}, []string{"strategy"}),
		JobsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "active",
			Help:      "Number of jobs currently pending or running",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors by database and operation",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBatchStarted increments the batches started counter.
func RecordBatchStarted() {
	DefaultMetrics.BatchesStarted.Inc()
}

// RecordBatchFinished records a finished batch with its status and duration.
func RecordBatchFinished(method, status string, durationSeconds float64) {
	DefaultMetrics.BatchesCompleted.WithLabelValues(status).Inc()
	DefaultMetrics.BatchDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordTrial counts one executed trial, failed or not.
func RecordTrial(failed bool) {
	DefaultMetrics.TrialsExecuted.Inc()
	if failed {
		DefaultMetrics.TrialsFailed.Inc()
	}
}

// RecordJobSubmitted counts one submitted job.
func RecordJobSubmitted(strategy string) {
	DefaultMetrics.JobsSubmitted.WithLabelValues(strategy).Inc()
	DefaultMetrics.JobsActive.Inc()
}

// RecordJobSettled decrements the active job gauge.
func RecordJobSettled() {
	DefaultMetrics.JobsActive.Dec()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
