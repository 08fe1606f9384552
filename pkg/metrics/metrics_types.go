package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the console
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Document Metrics
	TreeFetchesTotal        *prometheus.CounterVec
	DocumentFetchesTotal    *prometheus.CounterVec
	DocumentFetchDuration   *prometheus.HistogramVec
	DocumentSavesTotal      *prometheus.CounterVec
	DocumentSaveDuration    prometheus.Histogram
	DocumentFallbackNodes   prometheus.Gauge
	DocumentIntegrityErrors prometheus.Counter

	// Overlay Metrics
	OverlayPollTicksTotal *prometheus.CounterVec
	OverlayPollDuration   prometheus.Histogram
	OverlayFaults         *prometheus.GaugeVec
	OverlayDevices        prometheus.Gauge
	OverlayFaultedDevices prometheus.Gauge
	OverlayPollingActive  prometheus.Gauge

	// Session Metrics
	SessionTransitionsTotal     *prometheus.CounterVec
	SessionRejectedActionsTotal *prometheus.CounterVec
	SessionStaleResponsesTotal  *prometheus.CounterVec
	SessionMode                 *prometheus.GaugeVec
	SessionGeneration           prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge
	GCCycles         prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initHTTPMetrics()
	r.initDocumentMetrics()
	r.initOverlayMetrics()
	r.initSessionMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
