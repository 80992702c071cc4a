package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request counter
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTP request duration histogram
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// Active HTTP connections gauge
	HTTPActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	// Prescription mutation outcomes
	PrescriptionMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_mutations_total",
			Help: "Total number of prescription chain mutations",
		},
		[]string{"operation", "result"},
	)

	// Audit log appends
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit log entries appended",
		},
		[]string{"action"},
	)

	// Visit summary generations by source
	SummaryGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "summary_generations_total",
			Help: "Total number of visit summary requests served",
		},
		[]string{"source"}, // "cache", "openai", "fallback"
	)
)

// RecordHTTPRequest records metrics for an HTTP request
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)

	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordPrescriptionMutation records the outcome of a chain mutation
func RecordPrescriptionMutation(operation, result string) {
	PrescriptionMutationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordAuditEntry records an audit log append
func RecordAuditEntry(action string) {
	AuditEntriesTotal.WithLabelValues(action).Inc()
}

// RecordSummaryGeneration records where a summary response came from
func RecordSummaryGeneration(source string) {
	SummaryGenerationsTotal.WithLabelValues(source).Inc()
}

// IncActiveConnections increments active connections
func IncActiveConnections() {
	HTTPActiveConnections.Inc()
}

// DecActiveConnections decrements active connections
func DecActiveConnections() {
	HTTPActiveConnections.Dec()
}
