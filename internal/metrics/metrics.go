package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "transitions_total",
			Help:      "Total number of workflow stage transitions, partitioned by stage entered.",
		},
		[]string{"stage"},
	)

	workflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "workflows_total",
			Help:      "Total number of workflows reaching a terminal status, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "approvals_total",
			Help:      "Total number of gate decisions, partitioned by gate and decision.",
		},
		[]string{"gate", "decision"},
	)

	advisoryFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "remedy_engine",
			Name:      "advisory_fallbacks_total",
			Help:      "Total number of times the advisory re-ranker was skipped or rejected.",
		},
	)

	startDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "remedy_engine",
			Name:      "start_seconds",
			Help:      "Duration of the synchronous portion of workflow starts in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)
)

// Register attaches remedy-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		transitionsTotal,
		workflowsTotal,
		approvalsTotal,
		advisoryFallbacksTotal,
		startDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTransition records entry into a workflow stage.
func ObserveTransition(stage string) {
	transitionsTotal.WithLabelValues(stage).Inc()
}

// ObserveWorkflowOutcome records a workflow reaching a terminal status.
func ObserveWorkflowOutcome(outcome string) {
	workflowsTotal.WithLabelValues(outcome).Inc()
}

// ObserveApproval records one gate decision.
func ObserveApproval(gate string, approved bool) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	approvalsTotal.WithLabelValues(gate, decision).Inc()
}

// ObserveAdvisoryFallback records a skipped or rejected advisory reordering.
func ObserveAdvisoryFallback() {
	advisoryFallbacksTotal.Inc()
}

// ObserveStart records the duration of a synchronous workflow start.
func ObserveStart(duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	startDurationSeconds.Observe(duration.Seconds())
}
