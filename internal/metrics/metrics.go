// Package metrics holds the Prometheus collectors shared by the client and
// the development backend.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BackendRequests counts gateway calls by operation and outcome.
	// Outcome is "ok" or an apperr kind.
	BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroll",
		Name:      "backend_requests_total",
		Help:      "Backend calls issued by the client, by operation and outcome.",
	}, []string{"operation", "outcome"})

	// BackendLatency tracks gateway call duration.
	BackendLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "classroll",
		Name:      "backend_request_duration_seconds",
		Help:      "Backend call latency.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	// CacheWrites counts whole-list rewrites of the local cache.
	CacheWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroll",
		Name:      "cache_writes_total",
		Help:      "Local cache list rewrites, by key and outcome.",
	}, []string{"key", "outcome"})
)

func init() {
	prometheus.MustRegister(BackendRequests, BackendLatency, CacheWrites)
}

// ObserveBackend records one gateway call.
func ObserveBackend(operation, outcome string, started time.Time) {
	BackendRequests.WithLabelValues(operation, outcome).Inc()
	BackendLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// WriteFile dumps the default registry to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
