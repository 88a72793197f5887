package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/remedystack/remedy-engine/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "remedy.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	state := sampleState("INC-10")
	state.Audit = []models.AuditEntry{{ID: "a1", Action: "workflow_started"}}

	version, err := s.CompareAndSwap(ctx, state, 0)
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}

	got, gotVersion, err := s.Get(ctx, "INC-10")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if gotVersion != 1 || got.IncidentID != "INC-10" || len(got.Audit) != 1 {
		t.Fatalf("unexpected state %+v at version %d", got, gotVersion)
	}
}

func TestSQLiteStoreStaleVersionConflict(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	version, err := s.CompareAndSwap(ctx, sampleState("INC-11"), 0)
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	updated := sampleState("INC-11")
	updated.Stage = models.StageScored
	if _, err := s.CompareAndSwap(ctx, updated, version); err != nil {
		t.Fatalf("first update returned error: %v", err)
	}

	stale := sampleState("INC-11")
	if _, err := s.CompareAndSwap(ctx, stale, version); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestSQLiteStoreDuplicateCreate(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.CompareAndSwap(ctx, sampleState("INC-12"), 0); err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if _, err := s.CompareAndSwap(ctx, sampleState("INC-12"), 0); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification on duplicate create, got %v", err)
	}
}

func TestSQLiteStoreUpdateUnknown(t *testing.T) {
	s := newTestSQLiteStore(t)

	if _, err := s.CompareAndSwap(context.Background(), sampleState("INC-13"), 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
