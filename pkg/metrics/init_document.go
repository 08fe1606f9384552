package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initDocumentMetrics() {
	r.TreeFetchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_tree_fetches_total",
			Help: "Device tree fetches by outcome",
		},
		[]string{"status"},
	)

	r.DocumentFetchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_document_fetches_total",
			Help: "Document fetches by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)

	r.DocumentFetchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noc_document_fetch_duration_seconds",
			Help:    "Document plus overlay fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	r.DocumentSavesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_document_saves_total",
			Help: "Document saves by outcome",
		},
		[]string{"status"},
	)

	r.DocumentSaveDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noc_document_save_duration_seconds",
			Help:    "Document save latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.DocumentFallbackNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_document_fallback_nodes",
			Help: "Nodes of the open document that failed to decode into their variant",
		},
	)

	r.DocumentIntegrityErrors = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "noc_document_integrity_errors_total",
			Help: "Loaded documents that failed the integrity check",
		},
	)
}
