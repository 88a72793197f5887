package engine

import (
	"fmt"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/models"
)

// CheckPolicy validates one candidate against the bundle's policy
// constraints. All checks run in fixed order and every violation is
// reported; the verdict never short-circuits on the first failure. A
// failing candidate stays in the ranked list but cannot be selected
// automatically.
func CheckPolicy(c models.Candidate, p catalog.Playbook, bundle models.IncidentBundle) models.PolicyVerdict {
	policy := bundle.Policy
	var reasons []string

	if c.Predicted.LatencyMs > policy.LatencyTargetMs {
		reasons = append(reasons, fmt.Sprintf("predicted latency %.1fms exceeds latency target %.1fms",
			c.Predicted.LatencyMs, policy.LatencyTargetMs))
	}
	if c.CostPerHour > policy.MaxCostPerHourEUR {
		reasons = append(reasons, fmt.Sprintf("cost %.2f EUR/h exceeds budget %.2f EUR/h",
			c.CostPerHour, policy.MaxCostPerHourEUR))
	}
	if bundle.PathRedundancy+p.RedundancyDelta < policy.MinPathRedundancy {
		reasons = append(reasons, fmt.Sprintf("path redundancy %d after remediation falls below minimum %d",
			bundle.PathRedundancy+p.RedundancyDelta, policy.MinPathRedundancy))
	}

	return models.PolicyVerdict{OK: len(reasons) == 0, Reasons: reasons}
}
