package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSessionMetrics() {
	r.SessionTransitionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_session_transitions_total",
			Help: "Edit session mode transitions",
		},
		[]string{"from", "to", "trigger"},
	)

	r.SessionRejectedActionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_session_rejected_actions_total",
			Help: "Operator actions refused by the session",
		},
		[]string{"action", "reason"},
	)

	r.SessionStaleResponsesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "noc_session_stale_responses_total",
			Help: "Responses discarded because a newer request superseded them",
		},
		[]string{"operation"},
	)

	r.SessionMode = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "noc_session_mode",
			Help: "Current session mode (1 for the active mode)",
		},
		[]string{"mode"},
	)

	r.SessionGeneration = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "noc_session_generation",
			Help: "Supersession generation of the open document",
		},
	)
}
