package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/remedystack/remedy-engine/internal/advisory"
	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/models"
)

// Scoring weights. Weights sum to 1.0; latency improvement dominates.
const (
	weightLatency = 0.35
	weightLoss    = 0.20
	weightRisk    = 0.20
	weightCost    = 0.15
	weightETA     = 0.10

	refCostPerHourEUR = 50.0
	refETAMinutes     = 10.0
)

var riskScores = map[models.RiskLevel]float64{
	models.RiskLow:    1.0,
	models.RiskMedium: 0.7,
	models.RiskHigh:   0.4,
}

// Ranker builds and orders remediation candidates for a diagnosed incident.
type Ranker struct {
	catalog  *catalog.Catalog
	reranker advisory.Reranker
	topN     int
	logger   *slog.Logger
}

// NewRanker constructs a ranker. reranker may be nil, in which case the
// rule-based order is final.
func NewRanker(cat *catalog.Catalog, reranker advisory.Reranker, topN int, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	if topN <= 0 {
		topN = 5
	}
	return &Ranker{
		catalog:  cat,
		reranker: reranker,
		topN:     topN,
		logger:   logger,
	}
}

// RankOutcome is the ordered candidate list plus a record of whether the
// advisory reordering was applied.
type RankOutcome struct {
	Candidates      []models.Candidate
	AdvisoryApplied bool
	AdvisoryNote    string
}

// Rank builds candidates for the hypothesized cause, scores them, and
// returns them in descending score order. Ties break on candidate id so the
// ordering is total. When an advisory reranker is configured its reordering
// of the top entries is applied; any failure or invalid answer falls back
// to the rule-based order.
func (r *Ranker) Rank(ctx context.Context, bundle models.IncidentBundle, deltas models.DeltaSet, hyp models.Hypothesis) RankOutcome {
	playbooks := r.catalog.ForCause(hyp.Cause)
	candidates := make([]models.Candidate, 0, len(playbooks))
	for _, p := range playbooks {
		predicted := Project(p, deltas)
		cost := p.Cost(bundle.Prices)
		c := models.Candidate{
			ID:          p.ID,
			Kind:        p.Kind,
			ETAMinutes:  p.ETAMinutes,
			Predicted:   predicted,
			Risk:        p.Risk,
			CostPerHour: cost,
		}
		c.Score = score(c, deltas)
		c.Explanation = explain(c, deltas)
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Score > candidates[j].Score
	})

	if r.reranker == nil {
		return RankOutcome{Candidates: candidates}
	}
	return r.applyAdvisory(ctx, bundle, deltas, hyp, candidates)
}

// score combines predicted improvement, risk, cost, and time-to-effect into
// a single value in [0, 1].
func score(c models.Candidate, deltas models.DeltaSet) float64 {
	latencyScore := normalizedImprovement(deltas.LatencyMs, c.Predicted.LatencyMs)
	lossScore := normalizedImprovement(deltas.LossPct, c.Predicted.LossPct)
	riskScore := riskScores[c.Risk]
	costScore := 1 / (1 + c.CostPerHour/refCostPerHourEUR)
	etaScore := 1 / (1 + float64(c.ETAMinutes)/refETAMinutes)

	return weightLatency*latencyScore +
		weightLoss*lossScore +
		weightRisk*riskScore +
		weightCost*costScore +
		weightETA*etaScore
}

// normalizedImprovement maps a predicted value onto [0, 1] where 1 means
// full recovery to baseline and 0 means no improvement over the current
// degraded level.
func normalizedImprovement(delta models.MetricDelta, predicted float64) float64 {
	span := delta.Current - delta.Baseline
	if span <= 0 {
		return 0
	}
	improvement := (delta.Current - predicted) / span
	return math.Max(0, math.Min(1, improvement))
}

func explain(c models.Candidate, deltas models.DeltaSet) string {
	return fmt.Sprintf("predicted latency %.1fms (from %.1fms), loss %.2f%% (from %.2f%%), risk %s, %.2f EUR/h, ETA %dm",
		c.Predicted.LatencyMs, deltas.LatencyMs.Current,
		c.Predicted.LossPct, deltas.LossPct.Current,
		c.Risk, c.CostPerHour, c.ETAMinutes)
}

// applyAdvisory submits the top-N candidate ids for reordering. The answer
// must be a permutation of exactly the submitted ids; anything else keeps
// the rule-based order.
func (r *Ranker) applyAdvisory(ctx context.Context, bundle models.IncidentBundle, deltas models.DeltaSet, hyp models.Hypothesis, candidates []models.Candidate) RankOutcome {
	n := r.topN
	if n > len(candidates) {
		n = len(candidates)
	}
	if n < 2 {
		return RankOutcome{Candidates: candidates}
	}

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = candidates[i].ID
	}

	result, err := r.reranker.Rerank(ctx, advisory.Request{
		IncidentID:   bundle.IncidentID,
		CandidateIDs: ids,
		Cause:        hyp.Cause,
		Confidence:   hyp.Confidence,
		HotPath:      bundle.HotPath,
		Deltas:       deltas,
	})
	if err != nil {
		r.logger.Warn("advisory rerank unavailable, keeping rule-based order",
			slog.String("incident_id", bundle.IncidentID),
			slog.String("error", err.Error()))
		return RankOutcome{Candidates: candidates, AdvisoryNote: "advisory unavailable: " + err.Error()}
	}
	if !samePermutation(ids, result.OrderedIDs) {
		r.logger.Warn("advisory rerank returned an invalid ordering, keeping rule-based order",
			slog.String("incident_id", bundle.IncidentID))
		return RankOutcome{Candidates: candidates, AdvisoryNote: "advisory returned an invalid ordering"}
	}

	byID := make(map[string]models.Candidate, n)
	for i := 0; i < n; i++ {
		byID[candidates[i].ID] = candidates[i]
	}
	reordered := make([]models.Candidate, 0, len(candidates))
	for _, id := range result.OrderedIDs {
		reordered = append(reordered, byID[id])
	}
	reordered = append(reordered, candidates[n:]...)

	return RankOutcome{
		Candidates:      reordered,
		AdvisoryApplied: true,
		AdvisoryNote:    result.Rationale,
	}
}

// samePermutation reports whether got contains exactly the ids in want,
// each once, in any order.
func samePermutation(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	seen := make(map[string]bool, len(want))
	for _, id := range want {
		seen[id] = true
	}
	for _, id := range got {
		if !seen[id] {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}
