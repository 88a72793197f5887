package report

import (
	"fmt"
	"strings"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

// Render produces the human-facing incident report in Markdown. Output is a
// pure function of the incident state so re-rendering the same state always
// yields the same document.
func Render(state models.IncidentState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Incident Report: %s\n\n", state.IncidentID)
	fmt.Fprintf(&b, "- Priority: %s\n", state.Priority)
	fmt.Fprintf(&b, "- Hot path: %s\n", state.Bundle.HotPath)
	fmt.Fprintf(&b, "- Window: %s to %s (%.0f minutes)\n",
		utils.FormatUTC(state.Bundle.Window.Start),
		utils.FormatUTC(state.Bundle.Window.End),
		utils.DurationMinutes(state.Bundle.Window.Start, state.Bundle.Window.End))

	if state.Deltas != nil {
		d := state.Deltas
		b.WriteString("\n## Observed Degradation\n\n")
		fmt.Fprintf(&b, "| Metric | Baseline | Current | Delta |\n")
		fmt.Fprintf(&b, "|--------|----------|---------|-------|\n")
		fmt.Fprintf(&b, "| Latency (ms) | %.1f | %.1f | %+.1f |\n",
			d.LatencyMs.Baseline, d.LatencyMs.Current, d.LatencyMs.Delta)
		fmt.Fprintf(&b, "| Loss (%%) | %.2f | %.2f | %+.2f |\n",
			d.LossPct.Baseline, d.LossPct.Current, d.LossPct.Delta)
		fmt.Fprintf(&b, "| Utilization (%%, %s) | %.1f | %.1f | %+.1f |\n",
			d.UtilSegment, d.UtilPct.Baseline, d.UtilPct.Current, d.UtilPct.Delta)
	}

	if state.Hypothesis != nil {
		h := state.Hypothesis
		b.WriteString("\n## Root Cause\n\n")
		fmt.Fprintf(&b, "**%s** (confidence %.2f)\n\n", h.Cause, h.Confidence)
		for _, evidence := range h.Evidence {
			fmt.Fprintf(&b, "- %s\n", evidence)
		}
	}

	if len(state.Correlated) > 0 {
		b.WriteString("\n## Correlated Changes\n\n")
		for _, change := range state.Correlated {
			fmt.Fprintf(&b, "- %s: %s on %s\n",
				utils.FormatUTC(change.Timestamp), change.Type, change.Scope)
		}
	}

	if len(state.Candidates) > 0 {
		b.WriteString("\n## Remediation Candidates\n\n")
		fmt.Fprintf(&b, "| Candidate | Score | Risk | Cost (EUR/h) | ETA (min) | Policy |\n")
		fmt.Fprintf(&b, "|-----------|-------|------|--------------|-----------|--------|\n")
		for _, c := range state.Candidates {
			marker := ""
			if c.ID == state.SelectedID {
				marker = " (selected)"
			}
			fmt.Fprintf(&b, "| %s%s | %.3f | %s | %.2f | %d | %s |\n",
				c.ID, marker, c.Score, c.Risk, c.CostPerHour, c.ETAMinutes, verdictCell(c.Verdict))
		}
	}

	if state.Plan != nil {
		p := state.Plan
		b.WriteString("\n## Remediation Plan\n\n")
		fmt.Fprintf(&b, "- Action: %s\n", p.Action)
		fmt.Fprintf(&b, "- ETA: %d minutes\n", p.ETAMinutes)
		fmt.Fprintf(&b, "- Risk: %s\n", p.Risk)
		fmt.Fprintf(&b, "- Rollback tag: %s\n\n", p.RollbackTag)
		for i, step := range p.Steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		fmt.Fprintf(&b, "\nRollback: %s\n", p.Rollback)
	}

	if state.Outcome != nil {
		o := state.Outcome
		b.WriteString("\n## Projected Outcome\n\n")
		fmt.Fprintf(&b, "- Latency: %.1fms now, %.1fms projected\n",
			lastValue(o.BeforeLatencyMs), lastValue(o.AfterLatencyMs))
		fmt.Fprintf(&b, "- Loss: %.2f%% now, %.2f%% projected\n",
			lastValue(o.BeforeLossPct), lastValue(o.AfterLossPct))
	}

	if len(state.Approvals) > 0 {
		b.WriteString("\n## Approvals\n\n")
		for _, a := range state.Approvals {
			decision := "rejected"
			if a.Approved {
				decision = "approved"
			}
			line := fmt.Sprintf("- %s gate %s by %s", a.Gate, decision, a.Approver)
			if a.Feedback != "" {
				line += ": " + a.Feedback
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

func verdictCell(v *models.PolicyVerdict) string {
	switch {
	case v == nil:
		return "unchecked"
	case v.OK:
		return "ok"
	default:
		return "rejected: " + strings.Join(v.Reasons, "; ")
	}
}

func lastValue(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
