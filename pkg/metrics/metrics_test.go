package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.DocumentFetchesTotal == nil {
		t.Error("DocumentFetchesTotal not initialized")
	}
	if r.OverlayPollTicksTotal == nil {
		t.Error("OverlayPollTicksTotal not initialized")
	}
	if r.SessionTransitionsTotal == nil {
		t.Error("SessionTransitionsTotal not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordHTTPRequest("GET", "/api/v1/tree", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("POST", "/api/v1/session/save", "409", 20*time.Millisecond)

	counter, err := r.HTTPRequestsTotal.GetMetricWithLabelValues("GET", "/api/v1/tree", "200")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, counter); got != 1 {
		t.Errorf("Counter value = %v, want 1", got)
	}
}

func TestRecordDocumentAndPollOutcomes(t *testing.T) {
	r := NewRegistry()

	r.RecordDocumentFetch("select", "success", 10*time.Millisecond)
	r.RecordDocumentFetch("select", "success", 20*time.Millisecond)
	r.RecordDocumentFetch("cancel", "error", 5*time.Millisecond)
	r.RecordPollTick("applied", time.Millisecond)
	r.RecordPollTick("stale", 0)
	r.RecordPollTick("stale", 0)

	tests := []struct {
		name     string
		counter  prometheus.Counter
		expected float64
	}{
		{"select success", r.DocumentFetchesTotal.WithLabelValues("select", "success"), 2},
		{"cancel error", r.DocumentFetchesTotal.WithLabelValues("cancel", "error"), 1},
		{"poll applied", r.OverlayPollTicksTotal.WithLabelValues("applied"), 1},
		{"poll stale", r.OverlayPollTicksTotal.WithLabelValues("stale"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counterValue(t, tt.counter); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestSetMode(t *testing.T) {
	r := NewRegistry()

	r.SetMode("edit")
	if got := gaugeValue(t, r.SessionMode.WithLabelValues("edit")); got != 1 {
		t.Errorf("edit gauge = %v, want 1", got)
	}
	if got := gaugeValue(t, r.SessionMode.WithLabelValues("view")); got != 0 {
		t.Errorf("view gauge = %v, want 0", got)
	}

	r.SetMode("view")
	if got := gaugeValue(t, r.SessionMode.WithLabelValues("view")); got != 1 {
		t.Errorf("After switch, view gauge = %v, want 1", got)
	}
}

func TestSetOverlaySummary(t *testing.T) {
	r := NewRegistry()
	r.SetOverlaySummary(3, 1, 2, 0, 4)
	r.SetPollingActive(true)

	tests := []struct {
		name     string
		gauge    prometheus.Gauge
		expected float64
	}{
		{"devices", r.OverlayDevices, 3},
		{"faulted", r.OverlayFaultedDevices, 1},
		{"urgent", r.OverlayFaults.WithLabelValues("urgent"), 2},
		{"minor", r.OverlayFaults.WithLabelValues("minor"), 4},
		{"polling", r.OverlayPollingActive, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gaugeValue(t, tt.gauge); got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestMetricNamesArePrefixed(t *testing.T) {
	r := NewRegistry()
	r.RecordTransition("view", "edit", "enter")
	r.RecordRejected("delete", "editing")
	r.RecordStale("select")
	r.started = time.Now().Add(-time.Minute)
	r.RefreshSystemMetrics()

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families gathered")
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "noc_") {
			t.Errorf("metric %s lacks the noc_ prefix", mf.GetName())
		}
	}

	if got := gaugeValue(t, r.UptimeSeconds); got < 59 {
		t.Errorf("uptime = %v, want >= 59", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("goroutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.MemorySysBytes); got <= 0 {
		t.Errorf("sys bytes = %v, want > 0", got)
	}
}
