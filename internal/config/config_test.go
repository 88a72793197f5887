package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Fatalf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Workflow.GateDiagnosis || cfg.Workflow.GateCommand {
		t.Fatal("gates should default to off")
	}
	if cfg.Workflow.MaxGateRetries != 2 {
		t.Fatalf("maxGateRetries = %d, want 2", cfg.Workflow.MaxGateRetries)
	}
	if cfg.Workflow.CorrelationLookback != 10*time.Minute {
		t.Fatalf("correlationLookback = %v, want 10m", cfg.Workflow.CorrelationLookback)
	}
	if cfg.Workflow.AutoSelectThreshold != 0 {
		t.Fatal("auto-select should default to disabled")
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("store backend = %q, want memory", cfg.Store.Backend)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  address: ":9090"
workflow:
  gateDiagnosis: true
  maxGateRetries: 5
store:
  backend: sqlite
  dsn: /tmp/remedy.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("address = %q, want :9090", cfg.Server.Address)
	}
	if !cfg.Workflow.GateDiagnosis {
		t.Fatal("gateDiagnosis should be true")
	}
	if cfg.Workflow.MaxGateRetries != 5 {
		t.Fatalf("maxGateRetries = %d, want 5", cfg.Workflow.MaxGateRetries)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.DSN != "/tmp/remedy.db" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	// File values merge over defaults.
	if cfg.Server.MetricsAddress != ":2112" {
		t.Fatalf("metricsAddress = %q, want default :2112", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("explicit missing config file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REMEDY_GATE_COMMAND", "true")
	t.Setenv("REMEDY_MAX_GATE_RETRIES", "7")
	t.Setenv("REMEDY_ADVISORY_ENABLED", "1")
	t.Setenv("REMEDY_ADVISORY_BASE_URL", "http://advisor:9000")
	t.Setenv("REMEDY_AUTO_SELECT_THRESHOLD", "0.9")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Workflow.GateCommand {
		t.Fatal("REMEDY_GATE_COMMAND not applied")
	}
	if cfg.Workflow.MaxGateRetries != 7 {
		t.Fatalf("maxGateRetries = %d, want 7", cfg.Workflow.MaxGateRetries)
	}
	if !cfg.Advisory.Enabled || cfg.Advisory.BaseURL != "http://advisor:9000" {
		t.Fatalf("advisory overrides not applied: %+v", cfg.Advisory)
	}
	if cfg.Workflow.AutoSelectThreshold != 0.9 {
		t.Fatalf("autoSelectThreshold = %v, want 0.9", cfg.Workflow.AutoSelectThreshold)
	}
}
