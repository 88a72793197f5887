package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/remedystack/remedy-engine/internal/models"
)

// ErrInvalidBundle marks an incident bundle that is malformed or carries
// insufficient signal data to establish a baseline.
var ErrInvalidBundle = errors.New("invalid incident bundle")

// minBaselineSamples is the smallest baseline window from which a
// representative value can be established.
const minBaselineSamples = 2

// ScoreSignals derives the per-metric delta set from the submitted bundle.
//
// The representative value of a series is its terminal sample: the baseline
// window represents steady state and the current window represents the
// incident's latest observation. This policy is fixed; changing it would
// silently shift every downstream hypothesis and ranking.
func ScoreSignals(bundle models.IncidentBundle) (models.DeltaSet, error) {
	latency, err := scoreSeries("latency_ms", bundle.Metrics.LatencyMs)
	if err != nil {
		return models.DeltaSet{}, err
	}
	loss, err := scoreSeries("loss_pct", bundle.Metrics.LossPct)
	if err != nil {
		return models.DeltaSet{}, err
	}

	util, segment, err := scoreUtilization(bundle.Metrics.UtilPct)
	if err != nil {
		return models.DeltaSet{}, err
	}

	return models.DeltaSet{
		LatencyMs:   latency,
		LossPct:     loss,
		UtilPct:     util,
		UtilSegment: segment,
	}, nil
}

func scoreSeries(name string, series models.MetricSeries) (models.MetricDelta, error) {
	if len(series.Baseline) < minBaselineSamples {
		return models.MetricDelta{}, fmt.Errorf("%w: %s baseline requires at least %d samples, got %d",
			ErrInvalidBundle, name, minBaselineSamples, len(series.Baseline))
	}
	if len(series.Current) == 0 {
		return models.MetricDelta{}, fmt.Errorf("%w: %s current series is empty", ErrInvalidBundle, name)
	}

	baseline := series.Baseline[len(series.Baseline)-1]
	current := series.Current[len(series.Current)-1]
	delta := current - baseline

	pct := 0.0
	if baseline != 0 {
		pct = delta / baseline * 100
	}

	return models.MetricDelta{
		Baseline:  baseline,
		Current:   current,
		Delta:     delta,
		PctChange: pct,
	}, nil
}

// scoreUtilization reduces the per-segment utilization map to the segment
// with the largest delta. Segments are visited in sorted order so ties
// resolve to the lexicographically smallest segment id.
func scoreUtilization(util map[string]models.MetricSeries) (models.MetricDelta, string, error) {
	if len(util) == 0 {
		return models.MetricDelta{}, "", fmt.Errorf("%w: util_pct has no segments", ErrInvalidBundle)
	}

	segments := make([]string, 0, len(util))
	for seg := range util {
		segments = append(segments, seg)
	}
	sort.Strings(segments)

	var (
		best        models.MetricDelta
		bestSegment string
		scored      bool
	)
	for _, seg := range segments {
		delta, err := scoreSeries("util_pct["+seg+"]", util[seg])
		if err != nil {
			return models.MetricDelta{}, "", err
		}
		if !scored || delta.Delta > best.Delta {
			best = delta
			bestSegment = seg
			scored = true
		}
	}
	return best, bestSegment, nil
}
