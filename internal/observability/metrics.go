// Package observability holds the Prometheus metrics exposed at /metrics,
// grounded on the teacher's own prometheus/client_golang collector.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the image pipeline records.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	DerivativeCacheHits   prometheus.Counter
	DerivativeCacheMisses prometheus.Counter
	StorageHits           prometheus.Counter
	StorageMisses         prometheus.Counter
	AdmissionRejections   prometheus.Counter
	AdmissionEvictions    prometheus.Counter

	ProcessingDuration *prometheus.HistogramVec
	UpstreamFetches    *prometheus.CounterVec
}

// NewCollector builds a Collector registered against its own registry (not
// the global default), so repeated construction in tests never panics on
// duplicate registration.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		DerivativeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derivative_cache_hits_total",
			Help:      "Derivative cache lookups that hit.",
		}),
		DerivativeCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derivative_cache_misses_total",
			Help:      "Derivative cache lookups that missed.",
		}),
		StorageHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_hits_total",
			Help:      "Original store lookups that hit.",
		}),
		StorageMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_misses_total",
			Help:      "Original store lookups that missed.",
		}),
		AdmissionRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_rejections_total",
			Help:      "Derivative cache writes rejected by a full Restrict-policy variant index.",
		}),
		AdmissionEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_evictions_total",
			Help:      "Derivative cache writes that evicted a variant under Rewrite policy.",
		}),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time spent decoding, resizing, and encoding a derivative.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"extension"}),
		UpstreamFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetches_total",
			Help:      "Upstream file API fetches, partitioned by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.DerivativeCacheHits,
		c.DerivativeCacheMisses,
		c.StorageHits,
		c.StorageMisses,
		c.AdmissionRejections,
		c.AdmissionEvictions,
		c.ProcessingDuration,
		c.UpstreamFetches,
	)

	return c
}

// Handler serves the registry in the Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
