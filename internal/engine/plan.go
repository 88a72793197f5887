package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/models"
)

// ErrMissingParameter marks a playbook template referencing a placeholder
// with no value available from the playbook or the bundle.
var ErrMissingParameter = errors.New("missing plan parameter")

// planVersion identifies the plan schema emitted by this synthesizer.
const planVersion = "1"

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// SynthesizePlan renders the selected candidate's playbook into an
// executable plan by substituting incident and playbook values into the
// template placeholders. Any placeholder left unresolved fails the whole
// synthesis; partial plans are never produced.
func SynthesizePlan(c models.Candidate, p catalog.Playbook, bundle models.IncidentBundle) (models.Plan, error) {
	values := map[string]string{
		"incident_id":  bundle.IncidentID,
		"hot_path":     bundle.HotPath,
		"rollback_tag": bundle.IncidentID + "_RB",
	}
	if p.OffloadPct > 0 {
		values["offload_pct"] = formatAmount(p.OffloadPct)
	}
	if p.ThrottlePct > 0 {
		values["throttle_pct"] = formatAmount(p.ThrottlePct)
	}
	if p.CapacityGbps > 0 {
		values["capacity_gbps"] = formatAmount(p.CapacityGbps)
	}

	parameters := make(map[string]string, len(p.Parameters))
	for key, tmpl := range p.Parameters {
		rendered, err := substitute(tmpl, values)
		if err != nil {
			return models.Plan{}, fmt.Errorf("parameter %s: %w", key, err)
		}
		parameters[key] = rendered
	}

	preChecks, err := substituteAll(p.PreChecks, values)
	if err != nil {
		return models.Plan{}, err
	}
	steps, err := substituteAll(p.Steps, values)
	if err != nil {
		return models.Plan{}, err
	}
	postChecks, err := substituteAll(p.PostChecks, values)
	if err != nil {
		return models.Plan{}, err
	}
	rollback, err := substitute(p.Rollback, values)
	if err != nil {
		return models.Plan{}, err
	}

	return models.Plan{
		Version:     planVersion,
		IncidentID:  bundle.IncidentID,
		Action:      p.Kind,
		CandidateID: c.ID,
		Parameters:  parameters,
		PreChecks:   preChecks,
		Steps:       steps,
		PostChecks:  postChecks,
		ETAMinutes:  p.ETAMinutes,
		Risk:        p.Risk,
		RollbackTag: values["rollback_tag"],
		Rollback:    rollback,
	}, nil
}

func substitute(tmpl string, values map[string]string) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.Trim(match, "{}")
		value, ok := values[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("%w: no value for {%s}", ErrMissingParameter, missing)
	}
	return rendered, nil
}

func substituteAll(templates []string, values map[string]string) ([]string, error) {
	if len(templates) == 0 {
		return nil, nil
	}
	out := make([]string, len(templates))
	for i, tmpl := range templates {
		rendered, err := substitute(tmpl, values)
		if err != nil {
			return nil, err
		}
		out[i] = rendered
	}
	return out, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
