package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Playbook is one immutable remediation template. The catalog is reference
// data loaded once at process start; ranking, policy, and simulation logic
// never depend on individual entries.
type Playbook struct {
	ID              string            `yaml:"id"`
	Kind            string            `yaml:"kind"`
	ETAMinutes      int               `yaml:"eta_minutes"`
	Risk            models.RiskLevel  `yaml:"risk"`
	AppliesTo       []models.Cause    `yaml:"applies_to"`
	CostPerHourEUR  float64           `yaml:"cost_per_hr_eur"`
	OffloadPct      float64           `yaml:"offload_pct,omitempty"`
	ThrottlePct     float64           `yaml:"throttle_pct,omitempty"`
	CapacityGbps    float64           `yaml:"capacity_gbps,omitempty"`
	RedundancyDelta int               `yaml:"redundancy_delta"`
	Parameters      map[string]string `yaml:"parameters"`
	PreChecks       []string          `yaml:"pre_checks"`
	Steps           []string          `yaml:"steps"`
	PostChecks      []string          `yaml:"post_checks"`
	Rollback        string            `yaml:"rollback_procedure"`
}

// Cost returns the candidate cost per hour, resolving burst capacity against
// the submitted price table.
func (p Playbook) Cost(prices models.PriceTable) float64 {
	if p.Kind == KindBurstCapacity {
		return prices.BurstCapacityPerGbpsHourEUR * p.CapacityGbps
	}
	return p.CostPerHourEUR
}

// Remediation kinds known to the simulator's effect-profile table.
const (
	KindPartialOffload = "partial_offload"
	KindQoSShaping     = "qos_shaping"
	KindBurstCapacity  = "burst_capacity"
	KindConfigRollback = "config_rollback"
)

// Catalog holds the loaded playbook set.
type Catalog struct {
	playbooks []Playbook
	logger    *slog.Logger
}

type catalogFile struct {
	Playbooks []Playbook `yaml:"playbooks"`
}

// Load reads the playbook catalog from path. A missing or empty path yields
// the compiled-in default catalog.
func Load(path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return &Catalog{playbooks: defaultPlaybooks(), logger: logger}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("playbook catalog not found, using defaults", slog.String("path", path))
			return &Catalog{playbooks: defaultPlaybooks(), logger: logger}, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Playbooks) == 0 {
		return nil, fmt.Errorf("catalog %s contains no playbooks", path)
	}
	for _, p := range file.Playbooks {
		if p.ID == "" || p.Kind == "" {
			return nil, fmt.Errorf("catalog %s: playbook entries require id and kind", path)
		}
	}
	return &Catalog{playbooks: file.Playbooks, logger: logger}, nil
}

// All returns every playbook in the catalog.
func (c *Catalog) All() []Playbook {
	return append([]Playbook(nil), c.playbooks...)
}

// ForCause returns playbooks applicable to the given root cause. An unknown
// cause matches the entire catalog so the operator still sees options.
func (c *Catalog) ForCause(cause models.Cause) []Playbook {
	if cause == models.CauseUnknown {
		return c.All()
	}
	matched := make([]Playbook, 0, len(c.playbooks))
	for _, p := range c.playbooks {
		for _, applies := range p.AppliesTo {
			if applies == cause {
				matched = append(matched, p)
				break
			}
		}
	}
	if len(matched) == 0 {
		return c.All()
	}
	return matched
}

func defaultPlaybooks() []Playbook {
	return []Playbook{
		{
			ID:              "opt_partial_offload_40",
			Kind:            KindPartialOffload,
			ETAMinutes:      3,
			Risk:            models.RiskLow,
			AppliesTo:       []models.Cause{models.CauseCongestion, models.CauseHardwareFault},
			OffloadPct:      40,
			RedundancyDelta: -1,
			Parameters: map[string]string{
				"offload_percentage": "{offload_pct}",
				"target_path":        "alternate:{hot_path}",
			},
			PreChecks: []string{
				"Verify alternate path capacity below 50% utilization",
				"Backup current routing configuration",
				"Tag snapshot with rollback identifier",
			},
			Steps: []string{
				"Calculate traffic split ratio for {offload_pct}% offload",
				"Update routing weights on {hot_path}",
				"Apply configuration to edge routers",
				"Verify traffic distribution across paths",
			},
			PostChecks: []string{
				"Monitor latency for 5 minutes",
				"Verify packet loss below 0.5%",
				"Check alternate path utilization headroom",
			},
			Rollback: "Restore routing weights from snapshot {rollback_tag}",
		},
		{
			ID:          "opt_qos_shape_bulk_20",
			Kind:        KindQoSShaping,
			ETAMinutes:  5,
			Risk:        models.RiskMedium,
			AppliesTo:   []models.Cause{models.CauseCongestion},
			ThrottlePct: 20,
			Parameters: map[string]string{
				"throttle_percentage": "{throttle_pct}",
				"traffic_class":       "bulk",
			},
			PreChecks: []string{
				"Identify bulk traffic flows on {hot_path}",
				"Backup current QoS policy",
			},
			Steps: []string{
				"Configure QoS policy with {throttle_pct}% throttle on bulk class",
				"Apply policy to {hot_path} interfaces",
				"Monitor queue depths",
			},
			PostChecks: []string{
				"Monitor latency for 5 minutes",
				"Verify priority traffic unaffected",
			},
			Rollback: "Remove QoS policy and restore snapshot {rollback_tag}",
		},
		{
			ID:           "opt_burst_10gbps",
			Kind:         KindBurstCapacity,
			ETAMinutes:   4,
			Risk:         models.RiskLow,
			AppliesTo:    []models.Cause{models.CauseCongestion},
			CapacityGbps: 10,
			Parameters: map[string]string{
				"capacity_gbps":  "{capacity_gbps}",
				"duration_hours": "1",
			},
			PreChecks: []string{
				"Confirm provider burst capacity availability",
				"Record current bandwidth allocation",
			},
			Steps: []string{
				"Request {capacity_gbps} Gbps burst capacity from provider",
				"Wait for capacity provisioning",
				"Update bandwidth allocation on {hot_path}",
				"Verify increased throughput",
			},
			PostChecks: []string{
				"Monitor latency for 5 minutes",
				"Verify burst billing window",
			},
			Rollback: "Release burst capacity and restore allocation {rollback_tag}",
		},
		{
			ID:         "opt_config_rollback",
			Kind:       KindConfigRollback,
			ETAMinutes: 2,
			Risk:       models.RiskLow,
			AppliesTo:  []models.Cause{models.CauseConfigRegression},
			Parameters: map[string]string{
				"revert_scope": "{hot_path}",
			},
			PreChecks: []string{
				"Identify last known-good configuration revision",
				"Confirm change freeze on {hot_path}",
			},
			Steps: []string{
				"Diff current configuration against last known-good revision",
				"Revert configuration on {hot_path}",
				"Verify routing convergence",
			},
			PostChecks: []string{
				"Monitor latency for 5 minutes",
				"Verify no residual configuration drift",
			},
			Rollback: "Re-apply reverted change from snapshot {rollback_tag}",
		},
	}
}
