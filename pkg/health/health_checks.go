package health

import (
	"context"
	"fmt"
	"time"
)

// BackendCheck reports whether the console backend answers a ping.
func BackendCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "backend"}

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Reachable"
		}

		return check
	}
}

// TreeCheck reports whether the device tree has been loaded.
func TreeCheck(getTreeState func() (status string, leaves int)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "device_tree",
			Details: make(map[string]any),
		}

		status, leaves := getTreeState()
		check.Details["status"] = status
		check.Details["leaves"] = leaves

		switch status {
		case "ready":
			check.Status = StatusHealthy
			check.Message = "Tree loaded"
		case "loading", "idle":
			check.Status = StatusDegraded
			check.Message = "Tree not loaded yet"
		default:
			check.Status = StatusUnhealthy
			check.Message = "Tree load failed"
		}

		return check
	}
}

// DocumentCheck reports the status of the open document. No open document
// is healthy; a failed fetch is degraded, since the operator can retry.
func DocumentCheck(getDocState func() (status, mapID string)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "document",
			Details: make(map[string]any),
		}

		status, mapID := getDocState()
		check.Details["status"] = status
		check.Details["map_id"] = mapID

		if status == "failed" {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Document %s failed to load", mapID)
		} else {
			check.Status = StatusHealthy
		}

		return check
	}
}

// PollingCheck reports degraded when an active subscription has not
// completed a successful tick within three intervals.
func PollingCheck(getPollState func() (active bool, lastSuccess time.Time, interval time.Duration)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "overlay_polling",
			Details: make(map[string]any),
		}

		active, last, interval := getPollState()
		check.Details["active"] = active
		check.Details["interval_seconds"] = interval.Seconds()
		if !last.IsZero() {
			check.Details["last_success"] = last
		}

		switch {
		case !active:
			check.Status = StatusHealthy
			check.Message = "Polling paused"
		case !last.IsZero() && interval > 0 && time.Since(last) > 3*interval:
			check.Status = StatusDegraded
			check.Message = "Overlay data is stale"
		default:
			check.Status = StatusHealthy
			check.Message = "Polling"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
