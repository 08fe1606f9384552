package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initOverlayMetrics() {
	r.OverlayPollTicksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_overlay_poll_ticks_total",
			Help: "Overlay poll ticks by outcome (applied, unchanged, error, stale)",
		},
		[]string{"outcome"},
	)

	r.OverlayPollDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "noc_overlay_poll_duration_seconds",
			Help:    "Overlay fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.OverlayFaults = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noc_overlay_faults",
			Help: "Fault counts on the open document by severity",
		},
		[]string{"severity"},
	)

	r.OverlayDevices = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_overlay_devices",
			Help: "Device-backed nodes on the open document",
		},
	)

	r.OverlayFaultedDevices = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_overlay_faulted_devices",
			Help: "Devices on the open document with at least one fault",
		},
	)

	r.OverlayPollingActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_overlay_polling_active",
			Help: "Whether an overlay poll timer is running (1) or not (0)",
		},
	)
}
