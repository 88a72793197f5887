package engine

import (
	"fmt"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// Rule thresholds and confidence constants. Confidence is a fixed constant
// per rule so two runs over the same deltas always agree.
const (
	latencyDeltaThresholdMs = 25.0
	lossDeltaThresholdPct   = 1.0
	utilDeltaThresholdPct   = 15.0
	lossDeltaLargePct       = 2.0
	utilDeltaSmallPct       = 5.0

	confidenceConfigRegression = 0.70
	confidenceCongestion       = 0.85
	confidenceHardwareFault    = 0.70
	confidenceUnknown          = 0.40
)

// Hypothesize evaluates the rule table over the delta set and correlated
// changes. Rules are checked in fixed priority order: config_regression,
// congestion, hardware_fault, then the unknown fallback. Exactly one
// hypothesis is produced.
func Hypothesize(deltas models.DeltaSet, correlated []models.ChangeEvent) models.Hypothesis {
	if len(correlated) > 0 &&
		(deltas.LatencyMs.Delta > latencyDeltaThresholdMs || deltas.LossPct.Delta > lossDeltaThresholdPct) {
		evidence := []string{
			fmt.Sprintf("latency delta %.1fms, loss delta %.2fpt coincide with correlated changes", deltas.LatencyMs.Delta, deltas.LossPct.Delta),
		}
		for _, change := range correlated {
			evidence = append(evidence, fmt.Sprintf("%s on %s at %s inside lookback window",
				change.Type, change.Scope, utils.FormatUTC(change.Timestamp)))
		}
		return models.Hypothesis{
			Cause:      models.CauseConfigRegression,
			Confidence: confidenceConfigRegression,
			Evidence:   evidence,
		}
	}

	if deltas.UtilPct.Delta > utilDeltaThresholdPct {
		return models.Hypothesis{
			Cause:      models.CauseCongestion,
			Confidence: confidenceCongestion,
			Evidence: []string{
				fmt.Sprintf("utilization delta %.1fpt on segment %s exceeds %.0fpt", deltas.UtilPct.Delta, deltas.UtilSegment, utilDeltaThresholdPct),
				fmt.Sprintf("latency delta %.1fms, loss delta %.2fpt consistent with congestion", deltas.LatencyMs.Delta, deltas.LossPct.Delta),
			},
		}
	}

	if deltas.LossPct.Delta > lossDeltaLargePct && deltas.UtilPct.Delta < utilDeltaSmallPct {
		return models.Hypothesis{
			Cause:      models.CauseHardwareFault,
			Confidence: confidenceHardwareFault,
			Evidence: []string{
				fmt.Sprintf("loss delta %.2fpt is large while utilization delta %.1fpt is small", deltas.LossPct.Delta, deltas.UtilPct.Delta),
			},
		}
	}

	return models.Hypothesis{
		Cause:      models.CauseUnknown,
		Confidence: confidenceUnknown,
		Evidence: []string{
			fmt.Sprintf("degradation observed (latency delta %.1fms, loss delta %.2fpt, utilization delta %.1fpt) but no rule matched",
				deltas.LatencyMs.Delta, deltas.LossPct.Delta, deltas.UtilPct.Delta),
		},
	}
}
