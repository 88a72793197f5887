package engine

import (
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
)

func TestDerivePriority(t *testing.T) {
	cases := []struct {
		name   string
		deltas models.DeltaSet
		want   models.Priority
	}{
		{"critical on latency", models.DeltaSet{LatencyMs: models.MetricDelta{Delta: 120}}, models.PriorityCritical},
		{"critical on loss", models.DeltaSet{LossPct: models.MetricDelta{Delta: 6}}, models.PriorityCritical},
		{"high", models.DeltaSet{LatencyMs: models.MetricDelta{Delta: 43}, LossPct: models.MetricDelta{Delta: 2.4}}, models.PriorityHigh},
		{"medium on util", models.DeltaSet{UtilPct: models.MetricDelta{Delta: 21}}, models.PriorityMedium},
		{"low", models.DeltaSet{LatencyMs: models.MetricDelta{Delta: 5}}, models.PriorityLow},
	}

	for _, tc := range cases {
		if got := DerivePriority(tc.deltas); got != tc.want {
			t.Errorf("%s: priority = %s, want %s", tc.name, got, tc.want)
		}
	}
}
