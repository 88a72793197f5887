package models

import (
	"fmt"
	"time"
)

// TimeWindow bounds the incident under analysis.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ChangeEvent represents a configuration or deployment change.
type ChangeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Scope     string    `json:"scope"`
}

// Policy captures operator-supplied constraints a remediation must satisfy.
type Policy struct {
	LatencyTargetMs   float64 `json:"latency_target_ms"`
	MinPathRedundancy int     `json:"min_path_redundancy"`
	MaxCostPerHourEUR float64 `json:"max_cost_per_hour_eur"`
}

// PriceTable holds pricing inputs for cost projection.
type PriceTable struct {
	BurstCapacityPerGbpsHourEUR float64 `json:"burst_capacity_per_gbps_hour_eur"`
}

// MetricSeries pairs a baseline window with the current window for one metric.
type MetricSeries struct {
	Baseline []float64 `json:"baseline"`
	Current  []float64 `json:"current"`
}

// MetricsWindow carries the tracked signal series for the incident window.
// Utilization is keyed by network segment.
type MetricsWindow struct {
	LatencyMs MetricSeries            `json:"latency_ms"`
	LossPct   MetricSeries            `json:"loss_pct"`
	UtilPct   map[string]MetricSeries `json:"util_pct"`
}

// IncidentBundle is the immutable input package submitted for analysis.
type IncidentBundle struct {
	IncidentID     string        `json:"incident_id"`
	Window         TimeWindow    `json:"window"`
	HotPath        string        `json:"hot_path"`
	Metrics        MetricsWindow `json:"metrics"`
	Changes        []ChangeEvent `json:"changes"`
	Policy         Policy        `json:"policy"`
	Prices         PriceTable    `json:"prices_eur"`
	PathRedundancy int           `json:"path_redundancy"`
	SubmittedBy    string        `json:"submitted_by,omitempty"`
}

// Validate checks the bundle is sufficient to start a workflow.
func (b IncidentBundle) Validate() error {
	if b.IncidentID == "" {
		return fmt.Errorf("incident_id is required")
	}
	if b.Window.Start.IsZero() || b.Window.End.IsZero() {
		return fmt.Errorf("window.start and window.end are required")
	}
	if b.Window.End.Before(b.Window.Start) {
		return fmt.Errorf("window.end precedes window.start")
	}
	if b.HotPath == "" {
		return fmt.Errorf("hot_path is required")
	}
	return nil
}

// MetricDelta is the derived difference between current and baseline for one metric.
type MetricDelta struct {
	Baseline  float64 `json:"baseline"`
	Current   float64 `json:"current"`
	Delta     float64 `json:"delta"`
	PctChange float64 `json:"pct_change"`
}

// DeltaSet holds per-metric deltas derived by the signal scorer. Immutable
// once computed.
type DeltaSet struct {
	LatencyMs   MetricDelta `json:"latency_ms"`
	LossPct     MetricDelta `json:"loss_pct"`
	UtilPct     MetricDelta `json:"util_pct"`
	UtilSegment string      `json:"util_segment"`
}
