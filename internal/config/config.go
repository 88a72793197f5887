package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the remedy engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Advisory AdvisoryConfig `yaml:"advisory"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// WorkflowConfig controls gates, retries, and pipeline constants.
// AutoSelectThreshold auto-approves the diagnosis gate when hypothesis
// confidence meets it; zero disables auto-approval.
type WorkflowConfig struct {
	GateDiagnosis       bool          `yaml:"gateDiagnosis"`
	GateCommand         bool          `yaml:"gateCommand"`
	MaxGateRetries      int           `yaml:"maxGateRetries"`
	CorrelationLookback time.Duration `yaml:"correlationLookback"`
	AutoSelectThreshold float64       `yaml:"autoSelectThreshold"`
}

// AdvisoryConfig configures the optional external re-ranking capability.
type AdvisoryConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"baseURL"`
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
	TopN    int           `yaml:"topN"`
}

// CatalogConfig controls playbook catalog loading.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig selects and configures the incident state store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REMEDY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Workflow: WorkflowConfig{
			GateDiagnosis:       false,
			GateCommand:         false,
			MaxGateRetries:      2,
			CorrelationLookback: 10 * time.Minute,
			AutoSelectThreshold: 0,
		},
		Advisory: AdvisoryConfig{
			Enabled: false,
			Path:    "/api/v1/rerank",
			Timeout: 3 * time.Second,
			TopN:    5,
		},
		Catalog: CatalogConfig{Path: "configs/playbooks/default.yaml"},
		Store:   StoreConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REMEDY_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("REMEDY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("REMEDY_GATE_DIAGNOSIS"); v != "" {
		cfg.Workflow.GateDiagnosis = isTruthy(v)
	}
	if v := os.Getenv("REMEDY_GATE_COMMAND"); v != "" {
		cfg.Workflow.GateCommand = isTruthy(v)
	}
	if v := os.Getenv("REMEDY_MAX_GATE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workflow.MaxGateRetries = n
		}
	}
	if v := os.Getenv("REMEDY_CORRELATION_LOOKBACK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Workflow.CorrelationLookback = d
		}
	}
	if v := os.Getenv("REMEDY_AUTO_SELECT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Workflow.AutoSelectThreshold = f
		}
	}
	if v := os.Getenv("REMEDY_ADVISORY_ENABLED"); v != "" {
		cfg.Advisory.Enabled = isTruthy(v)
	}
	if v := os.Getenv("REMEDY_ADVISORY_BASE_URL"); v != "" {
		cfg.Advisory.BaseURL = v
	}
	if v := os.Getenv("REMEDY_ADVISORY_PATH"); v != "" {
		cfg.Advisory.Path = v
	}
	if v := os.Getenv("REMEDY_ADVISORY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Advisory.Timeout = d
		}
	}
	if v := os.Getenv("REMEDY_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("REMEDY_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("REMEDY_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("REMEDY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REMEDY_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
}
