package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

func congestionBundle() models.IncidentBundle {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return models.IncidentBundle{
		IncidentID: "INC-1001",
		Window:     models.TimeWindow{Start: start, End: start.Add(15 * time.Minute)},
		HotPath:    "FRA-CORE->AMS-EDGE",
		Metrics: models.MetricsWindow{
			LatencyMs: models.MetricSeries{Baseline: []float64{34, 35}, Current: []float64{70, 78}},
			LossPct:   models.MetricSeries{Baseline: []float64{0.1, 0.1}, Current: []float64{1.8, 2.5}},
			UtilPct: map[string]models.MetricSeries{
				"FRA-CORE": {Baseline: []float64{74, 75}, Current: []float64{92, 96}},
				"AMS-EDGE": {Baseline: []float64{60, 60}, Current: []float64{65, 66}},
			},
		},
		Policy:         models.Policy{LatencyTargetMs: 50, MinPathRedundancy: 1, MaxCostPerHourEUR: 100},
		Prices:         models.PriceTable{BurstCapacityPerGbpsHourEUR: 2},
		PathRedundancy: 2,
	}
}

func TestScoreSignals(t *testing.T) {
	deltas, err := ScoreSignals(congestionBundle())
	if err != nil {
		t.Fatalf("ScoreSignals returned error: %v", err)
	}

	if deltas.LatencyMs.Delta != 43 {
		t.Fatalf("latency delta = %v, want 43", deltas.LatencyMs.Delta)
	}
	if deltas.LossPct.Delta != 2.4 {
		t.Fatalf("loss delta = %v, want 2.4", deltas.LossPct.Delta)
	}
	if deltas.UtilPct.Delta != 21 {
		t.Fatalf("util delta = %v, want 21", deltas.UtilPct.Delta)
	}
	if deltas.UtilSegment != "FRA-CORE" {
		t.Fatalf("util segment = %q, want FRA-CORE", deltas.UtilSegment)
	}
}

func TestScoreSignalsShortBaseline(t *testing.T) {
	bundle := congestionBundle()
	bundle.Metrics.LatencyMs.Baseline = []float64{35}

	if _, err := ScoreSignals(bundle); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestScoreSignalsEmptyCurrent(t *testing.T) {
	bundle := congestionBundle()
	bundle.Metrics.LossPct.Current = nil

	if _, err := ScoreSignals(bundle); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestScoreSignalsNoUtilSegments(t *testing.T) {
	bundle := congestionBundle()
	bundle.Metrics.UtilPct = nil

	if _, err := ScoreSignals(bundle); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestScoreSignalsUtilTieBreak(t *testing.T) {
	bundle := congestionBundle()
	bundle.Metrics.UtilPct = map[string]models.MetricSeries{
		"ZZZ": {Baseline: []float64{70, 70}, Current: []float64{90}},
		"AAA": {Baseline: []float64{70, 70}, Current: []float64{90}},
	}

	deltas, err := ScoreSignals(bundle)
	if err != nil {
		t.Fatalf("ScoreSignals returned error: %v", err)
	}
	if deltas.UtilSegment != "AAA" {
		t.Fatalf("tie should resolve to lexicographically smallest segment, got %q", deltas.UtilSegment)
	}
}
