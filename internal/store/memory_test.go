package store

import (
	"context"
	"errors"
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
)

func sampleState(id string) models.IncidentState {
	return models.IncidentState{
		IncidentID: id,
		Stage:      models.StageIngested,
		Status:     models.StatusRunning,
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	version, err := s.CompareAndSwap(ctx, sampleState("INC-1"), 0)
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}

	got, gotVersion, err := s.Get(ctx, "INC-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.IncidentID != "INC-1" || gotVersion != 1 {
		t.Fatalf("got %s at version %d", got.IncidentID, gotVersion)
	}
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.Get(context.Background(), "INC-MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreStaleVersionConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	version, err := s.CompareAndSwap(ctx, sampleState("INC-2"), 0)
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	// First writer wins.
	updated := sampleState("INC-2")
	updated.Stage = models.StageScored
	if _, err := s.CompareAndSwap(ctx, updated, version); err != nil {
		t.Fatalf("first update returned error: %v", err)
	}

	// Second writer holds the stale version.
	stale := sampleState("INC-2")
	stale.Stage = models.StageCorrelated
	if _, err := s.CompareAndSwap(ctx, stale, version); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestMemoryStoreDuplicateCreate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.CompareAndSwap(ctx, sampleState("INC-3"), 0); err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if _, err := s.CompareAndSwap(ctx, sampleState("INC-3"), 0); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification on duplicate create, got %v", err)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	state := sampleState("INC-4")
	state.Audit = []models.AuditEntry{{ID: "a1", Action: "workflow_started"}}
	if _, err := s.CompareAndSwap(ctx, state, 0); err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	got, _, err := s.Get(ctx, "INC-4")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got.Audit[0].Action = "mutated"

	again, _, err := s.Get(ctx, "INC-4")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if again.Audit[0].Action != "workflow_started" {
		t.Fatal("reader mutation leaked into the store")
	}
}

func TestMemoryStoreList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"INC-B", "INC-A", "INC-C"} {
		if _, err := s.CompareAndSwap(ctx, sampleState(id), 0); err != nil {
			t.Fatalf("create %s returned error: %v", id, err)
		}
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"INC-A", "INC-B", "INC-C"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
