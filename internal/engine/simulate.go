package engine

import (
	"math"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/models"
)

// Effect-profile constants per remediation kind. These are declared,
// static configuration: projections never learn from historical outcomes.
const (
	offloadLatencyCoeff = 0.6
	offloadLossDropPct  = 0.8
	offloadLossFloorPct = 0.1

	shapingLatencyCoeff   = 0.4
	shapingLatencyFloorMs = 3.0
	shapingLossDropPct    = 0.5
	shapingLossFloorPct   = 0.2

	burstLossFloorPct = 0.2
)

// Project computes predicted post-remediation metrics for one playbook.
// Pure function of its inputs: identical bundle and playbook always yield
// identical projections.
func Project(p catalog.Playbook, deltas models.DeltaSet) models.PredictedMetrics {
	latNow := deltas.LatencyMs.Current
	latBase := deltas.LatencyMs.Baseline
	lossNow := deltas.LossPct.Current
	lossBase := deltas.LossPct.Baseline

	switch p.Kind {
	case catalog.KindPartialOffload:
		return models.PredictedMetrics{
			LatencyMs: math.Max(latBase, latNow-offloadLatencyCoeff*(p.OffloadPct/10)),
			LossPct:   math.Max(offloadLossFloorPct, lossNow-offloadLossDropPct),
		}
	case catalog.KindQoSShaping:
		return models.PredictedMetrics{
			LatencyMs: math.Max(latBase+shapingLatencyFloorMs, latNow-shapingLatencyCoeff*(p.ThrottlePct/10)),
			LossPct:   math.Max(shapingLossFloorPct, lossNow-shapingLossDropPct),
		}
	case catalog.KindBurstCapacity:
		return models.PredictedMetrics{
			LatencyMs: latBase,
			LossPct:   math.Min(lossNow, burstLossFloorPct),
		}
	case catalog.KindConfigRollback:
		// Restore to baseline.
		return models.PredictedMetrics{
			LatencyMs: latBase,
			LossPct:   lossBase,
		}
	default:
		return models.PredictedMetrics{LatencyMs: latNow, LossPct: lossNow}
	}
}

// afterSeriesPoints is the fixed length of projected series.
const afterSeriesPoints = 10

// GenerateAfterSeries produces a simulated post-remediation series showing
// a linear transition from the last observed value to the predicted value.
func GenerateAfterSeries(before []float64, after float64) []float64 {
	out := make([]float64, afterSeriesPoints)
	if len(before) == 0 {
		for i := range out {
			out[i] = after
		}
		return out
	}
	start := before[len(before)-1]
	step := (after - start) / afterSeriesPoints
	for i := range out {
		out[i] = start + step*float64(i+1)
	}
	return out
}

// BuildOutcome assembles the before/after record for the selected candidate,
// consumed by the reporting layer.
func BuildOutcome(metrics models.MetricsWindow, predicted models.PredictedMetrics) models.OutcomeRecord {
	return models.OutcomeRecord{
		BeforeLatencyMs: append([]float64(nil), metrics.LatencyMs.Current...),
		AfterLatencyMs:  GenerateAfterSeries(metrics.LatencyMs.Current, predicted.LatencyMs),
		BeforeLossPct:   append([]float64(nil), metrics.LossPct.Current...),
		AfterLossPct:    GenerateAfterSeries(metrics.LossPct.Current, predicted.LossPct),
	}
}
