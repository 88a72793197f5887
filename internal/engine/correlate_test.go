package engine

import (
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

func TestCorrelateChanges(t *testing.T) {
	bundle := congestionBundle()
	start := bundle.Window.Start
	bundle.Changes = []models.ChangeEvent{
		{Timestamp: start.Add(-20 * time.Minute), Type: "config_push", Scope: "FRA-CORE"},
		{Timestamp: start.Add(-5 * time.Minute), Type: "config_push", Scope: "FRA-CORE"},
		{Timestamp: start.Add(2 * time.Minute), Type: "firmware_update", Scope: "AMS-EDGE"},
		{Timestamp: start.Add(3 * time.Minute), Type: "config_push", Scope: "LON-CORE"},
	}

	correlated := CorrelateChanges(bundle, 10*time.Minute)

	if len(correlated) != 2 {
		t.Fatalf("correlated %d events, want 2", len(correlated))
	}
	if correlated[0].Scope != "FRA-CORE" || correlated[1].Scope != "AMS-EDGE" {
		t.Fatalf("unexpected correlation order: %v", correlated)
	}
	if !correlated[0].Timestamp.Before(correlated[1].Timestamp) {
		t.Fatalf("correlated events not chronological")
	}
}

func TestCorrelateChangesNoMatchesIsValid(t *testing.T) {
	bundle := congestionBundle()
	bundle.Changes = []models.ChangeEvent{
		{Timestamp: bundle.Window.Start, Type: "config_push", Scope: "SYD-EDGE"},
	}

	if got := CorrelateChanges(bundle, 10*time.Minute); len(got) != 0 {
		t.Fatalf("expected no correlated events, got %v", got)
	}
}

func TestCorrelateChangesScopeMatchesHop(t *testing.T) {
	if !scopeOnPath("AMS-EDGE", "FRA-CORE->AMS-EDGE") {
		t.Fatal("hop scope should match the hot path")
	}
	if scopeOnPath("LON-CORE", "FRA-CORE->AMS-EDGE") {
		t.Fatal("off-path scope should not match")
	}
	if scopeOnPath("", "FRA-CORE->AMS-EDGE") {
		t.Fatal("empty scope should not match")
	}
}
