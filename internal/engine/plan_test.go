package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/remedystack/remedy-engine/internal/catalog"
	"github.com/remedystack/remedy-engine/internal/models"
)

func playbookByID(t *testing.T, id string) catalog.Playbook {
	t.Helper()
	for _, p := range testCatalog(t).All() {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("playbook %s not in default catalog", id)
	return catalog.Playbook{}
}

func TestSynthesizePlan(t *testing.T) {
	bundle := congestionBundle()
	p := playbookByID(t, "opt_partial_offload_40")
	cand := models.Candidate{ID: p.ID, Kind: p.Kind}

	plan, err := SynthesizePlan(cand, p, bundle)
	if err != nil {
		t.Fatalf("SynthesizePlan returned error: %v", err)
	}

	if plan.RollbackTag != "INC-1001_RB" {
		t.Fatalf("rollback tag = %q, want INC-1001_RB", plan.RollbackTag)
	}
	if plan.Action != catalog.KindPartialOffload {
		t.Fatalf("action = %q, want %q", plan.Action, catalog.KindPartialOffload)
	}
	if plan.Parameters["offload_percentage"] != "40" {
		t.Fatalf("offload_percentage = %q, want 40", plan.Parameters["offload_percentage"])
	}
	for _, step := range plan.Steps {
		if strings.Contains(step, "{") {
			t.Fatalf("unsubstituted placeholder in step %q", step)
		}
	}
	if !strings.Contains(plan.Rollback, "INC-1001_RB") {
		t.Fatalf("rollback procedure should reference the rollback tag: %q", plan.Rollback)
	}
}

func TestSynthesizePlanMissingParameter(t *testing.T) {
	bundle := congestionBundle()
	p := catalog.Playbook{
		ID:    "opt_custom",
		Kind:  catalog.KindQoSShaping,
		Steps: []string{"Throttle {undeclared_knob} on {hot_path}"},
	}
	cand := models.Candidate{ID: p.ID, Kind: p.Kind}

	_, err := SynthesizePlan(cand, p, bundle)
	if !errors.Is(err, ErrMissingParameter) {
		t.Fatalf("expected ErrMissingParameter, got %v", err)
	}
	if !strings.Contains(err.Error(), "undeclared_knob") {
		t.Fatalf("error should name the missing placeholder: %v", err)
	}
}

func TestSynthesizePlanDeterministic(t *testing.T) {
	bundle := congestionBundle()
	p := playbookByID(t, "opt_burst_10gbps")
	cand := models.Candidate{ID: p.ID, Kind: p.Kind}

	first, err := SynthesizePlan(cand, p, bundle)
	if err != nil {
		t.Fatalf("SynthesizePlan returned error: %v", err)
	}
	second, err := SynthesizePlan(cand, p, bundle)
	if err != nil {
		t.Fatalf("SynthesizePlan returned error: %v", err)
	}

	if first.RollbackTag != second.RollbackTag || len(first.Steps) != len(second.Steps) {
		t.Fatalf("plans differ between runs")
	}
	for i := range first.Steps {
		if first.Steps[i] != second.Steps[i] {
			t.Fatalf("step %d differs: %q vs %q", i, first.Steps[i], second.Steps[i])
		}
	}
}
