package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}

// RecordTreeFetch records a device tree fetch
func (r *Registry) RecordTreeFetch(status string) {
	r.TreeFetchesTotal.WithLabelValues(status).Inc()
}

// RecordDocumentFetch records a document fetch
func (r *Registry) RecordDocumentFetch(trigger, status string, duration time.Duration) {
	r.DocumentFetchesTotal.WithLabelValues(trigger, status).Inc()
	r.DocumentFetchDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordSave records a document save
func (r *Registry) RecordSave(status string, duration time.Duration) {
	r.DocumentSavesTotal.WithLabelValues(status).Inc()
	r.DocumentSaveDuration.Observe(duration.Seconds())
}

// RecordPollTick records one overlay poll tick
func (r *Registry) RecordPollTick(outcome string, duration time.Duration) {
	r.OverlayPollTicksTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		r.OverlayPollDuration.Observe(duration.Seconds())
	}
}

// SetOverlaySummary publishes the overlay totals of the open document
func (r *Registry) SetOverlaySummary(devices, faulted, urgent, important, minor int) {
	r.OverlayDevices.Set(float64(devices))
	r.OverlayFaultedDevices.Set(float64(faulted))
	r.OverlayFaults.WithLabelValues("urgent").Set(float64(urgent))
	r.OverlayFaults.WithLabelValues("important").Set(float64(important))
	r.OverlayFaults.WithLabelValues("minor").Set(float64(minor))
}

// SetPollingActive records whether a poll timer is running
func (r *Registry) SetPollingActive(active bool) {
	if active {
		r.OverlayPollingActive.Set(1)
	} else {
		r.OverlayPollingActive.Set(0)
	}
}

// RecordTransition records a session mode transition
func (r *Registry) RecordTransition(from, to, trigger string) {
	r.SessionTransitionsTotal.WithLabelValues(from, to, trigger).Inc()
}

// RecordRejected records a refused operator action
func (r *Registry) RecordRejected(action, reason string) {
	r.SessionRejectedActionsTotal.WithLabelValues(action, reason).Inc()
}

// RecordStale records a discarded superseded response
func (r *Registry) RecordStale(operation string) {
	r.SessionStaleResponsesTotal.WithLabelValues(operation).Inc()
}

// SetMode sets the current session mode
func (r *Registry) SetMode(mode string) {
	// Reset all modes
	r.SessionMode.WithLabelValues("view").Set(0)
	r.SessionMode.WithLabelValues("edit").Set(0)

	r.SessionMode.WithLabelValues(mode).Set(1)
}

// SetGeneration publishes the supersession generation
func (r *Registry) SetGeneration(gen uint64) {
	r.SessionGeneration.Set(float64(gen))
}
