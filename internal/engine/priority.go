package engine

import "github.com/remedystack/remedy-engine/internal/models"

// Priority thresholds over the scored deltas.
const (
	criticalLatencyDeltaMs = 100.0
	criticalLossDeltaPct   = 5.0
	highLatencyDeltaMs     = 40.0
	highLossDeltaPct       = 2.0
)

// DerivePriority grades incident urgency from the scored deltas. The grade
// is informational; it never changes routing through the workflow.
func DerivePriority(deltas models.DeltaSet) models.Priority {
	switch {
	case deltas.LatencyMs.Delta > criticalLatencyDeltaMs || deltas.LossPct.Delta > criticalLossDeltaPct:
		return models.PriorityCritical
	case deltas.LatencyMs.Delta > highLatencyDeltaMs || deltas.LossPct.Delta > highLossDeltaPct:
		return models.PriorityHigh
	case deltas.LatencyMs.Delta > latencyDeltaThresholdMs || deltas.UtilPct.Delta > utilDeltaThresholdPct:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
