package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSystemMetrics() {
	r.started = time.Now()

	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_console_uptime_seconds",
			Help: "Seconds since the console process created its metrics registry",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_console_goroutines",
			Help: "Goroutines in the console process, including pollers and long-poll waiters",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_console_heap_alloc_bytes",
			Help: "Heap bytes held by documents, overlays and the tree index",
		},
	)

	r.MemorySysBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_console_sys_bytes",
			Help: "Bytes of memory obtained from the OS",
		},
	)

	r.GCCycles = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_console_gc_cycles",
			Help: "Completed garbage collection cycles",
		},
	)
}

// RefreshSystemMetrics samples the runtime into the process gauges. The
// /metrics handler calls it before every scrape.
func (r *Registry) RefreshSystemMetrics() {
	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
	r.GCCycles.Set(float64(m.NumGC))
}
