package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// CorrelateChanges returns the change events that fall inside the incident
// window extended backwards by lookback AND whose scope lies on the hot
// path. An empty result is a valid outcome, not an error.
func CorrelateChanges(bundle models.IncidentBundle, lookback time.Duration) []models.ChangeEvent {
	if len(bundle.Changes) == 0 {
		return nil
	}

	cutoff := bundle.Window.Start.Add(-lookback)
	end := bundle.Window.End

	correlated := make([]models.ChangeEvent, 0, len(bundle.Changes))
	for _, change := range bundle.Changes {
		if change.Timestamp.Before(cutoff) || change.Timestamp.After(end) {
			continue
		}
		if !scopeOnPath(change.Scope, bundle.HotPath) {
			continue
		}
		correlated = append(correlated, change)
	}

	sort.SliceStable(correlated, func(i, j int) bool {
		if correlated[i].Timestamp.Equal(correlated[j].Timestamp) {
			return correlated[i].Scope < correlated[j].Scope
		}
		return correlated[i].Timestamp.Before(correlated[j].Timestamp)
	})

	return correlated
}

// scopeOnPath reports whether a change scope names a hop on the hot path.
// Hot paths are hop identifiers joined by "->" (e.g. "A->B->C"); a scope
// intersects when it matches one of the hops or a substring of the path.
func scopeOnPath(scope, hotPath string) bool {
	if scope == "" || hotPath == "" {
		return false
	}
	for _, hop := range strings.Split(hotPath, "->") {
		if strings.EqualFold(strings.TrimSpace(hop), scope) {
			return true
		}
	}
	return strings.Contains(hotPath, scope)
}
