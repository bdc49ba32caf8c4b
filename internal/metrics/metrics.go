package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the collection of Prometheus metrics the engine exports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SyncOperations      *prometheus.CounterVec
	PayloadBytes        prometheus.Histogram
	BlobCleanupFailures prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{gatherer: reg}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.SyncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Project sync operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.PayloadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_payload_bytes",
			Help:    "Serialized size of project payloads accepted for upsert",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
	)

	m.BlobCleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_blob_cleanup_failures_total",
			Help: "Offloaded payloads whose removal failed after ingestion",
		},
	)

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SyncOperations,
		m.PayloadBytes,
		m.BlobCleanupFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveSync counts one sync operation. outcome is "ok" or an error code.
func (m *Metrics) ObserveSync(operation, outcome string) {
	if m == nil {
		return
	}
	m.SyncOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObservePayload(size int) {
	if m == nil {
		return
	}
	m.PayloadBytes.Observe(float64(size))
}

func (m *Metrics) IncCleanupFailure() {
	if m == nil {
		return
	}
	m.BlobCleanupFailures.Inc()
}
