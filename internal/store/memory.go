package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/remedystack/remedy-engine/internal/models"
)

type versionedState struct {
	data    []byte
	version int64
}

// MemoryStore is the in-process Store used by default and in tests. States
// are kept JSON-encoded so readers and writers never share mutable memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]versionedState
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[string]versionedState{}}
}

func (s *MemoryStore) Get(_ context.Context, incidentID string) (models.IncidentState, int64, error) {
	s.mu.RLock()
	entry, ok := s.states[incidentID]
	s.mu.RUnlock()
	if !ok {
		return models.IncidentState{}, 0, fmt.Errorf("%w: %s", ErrNotFound, incidentID)
	}

	var state models.IncidentState
	if err := json.Unmarshal(entry.data, &state); err != nil {
		return models.IncidentState{}, 0, fmt.Errorf("decode state %s: %w", incidentID, err)
	}
	return state, entry.version, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, state models.IncidentState, version int64) (int64, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encode state %s: %w", state.IncidentID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.states[state.IncidentID]
	switch {
	case version == 0 && exists:
		return 0, fmt.Errorf("%w: %s already exists", ErrConcurrentModification, state.IncidentID)
	case version != 0 && !exists:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, state.IncidentID)
	case version != 0 && entry.version != version:
		return 0, fmt.Errorf("%w: %s at version %d, expected %d",
			ErrConcurrentModification, state.IncidentID, entry.version, version)
	}

	next := version + 1
	s.states[state.IncidentID] = versionedState{data: data, version: next}
	return next, nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }
