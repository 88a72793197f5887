package store

import (
	"context"
	"errors"

	"github.com/remedystack/remedy-engine/internal/models"
)

var (
	// ErrNotFound is returned when no state exists for an incident id.
	ErrNotFound = errors.New("incident state not found")

	// ErrConcurrentModification is returned when a CompareAndSwap loses the
	// race against another writer. The caller must reload and retry or
	// surface a conflict.
	ErrConcurrentModification = errors.New("incident state modified concurrently")
)

// Store persists incident workflow state under optimistic concurrency.
//
// Every stored state carries a version number starting at 1. Writers pass
// the version they read; the swap succeeds only when the stored version
// still matches, and the new version is returned. Passing version 0
// creates the state and fails if it already exists.
type Store interface {
	// Get returns the state and its current version.
	Get(ctx context.Context, incidentID string) (models.IncidentState, int64, error)

	// CompareAndSwap writes state if the stored version equals version.
	// version 0 means create. Returns the version after the write.
	CompareAndSwap(ctx context.Context, state models.IncidentState, version int64) (int64, error)

	// List returns the ids of all stored incidents in lexicographic order.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}
