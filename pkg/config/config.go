// Package config provides configuration structures and loading logic for
// the guardian CLI and for applications embedding the client.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything needed to construct a client.
type Config struct {
	// APIKey authenticates against the scanning service. Required for
	// network operations; isolation works without it.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	// Version selects the default engine, "v1" or "v2".
	Version string `yaml:"version"`
	// TimeoutSeconds is the per-operation budget including retries.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`

	Batch     BatchConfig     `yaml:"batch"`
	Isolation IsolationConfig `yaml:"isolation"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// BatchConfig bounds concurrent batch dispatch.
type BatchConfig struct {
	Workers           int `yaml:"workers"`
	RequestsPerSecond int `yaml:"requests_per_second"`
}

// IsolationConfig declares extra ad-tag dialect entries. Empty lists keep
// the engine defaults.
type IsolationConfig struct {
	XMLTags          []string `yaml:"xml_tags"`
	BBCodeTags       []string `yaml:"bbcode_tags"`
	CommentSentinels []string `yaml:"comment_sentinels"`
	Placeholder      string   `yaml:"placeholder"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// TelemetryConfig holds configuration for OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Load reads configuration from a file (optional) and applies environment
// variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		BaseURL:        "https://api.fallenangelsystems.com",
		Version:        "v2",
		TimeoutSeconds: 30,
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	if path != "" {
		//nolint:gosec // Config file path is supplied by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("GUARDIAN_API_KEY"); val != "" {
		cfg.APIKey = val
	}
	if val := os.Getenv("GUARDIAN_BASE_URL"); val != "" {
		cfg.BaseURL = val
	}
	if val := os.Getenv("GUARDIAN_VERSION"); val != "" {
		cfg.Version = val
	}
	if val := os.Getenv("GUARDIAN_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("GUARDIAN_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("GUARDIAN_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
}

// Validate checks invariants the client cannot recover from.
func (c *Config) Validate() error {
	if c.Version != "v1" && c.Version != "v2" {
		return fmt.Errorf("version must be v1 or v2, got %q", c.Version)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %g", c.TimeoutSeconds)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	if c.Batch.RequestsPerSecond < 0 {
		return fmt.Errorf("batch.requests_per_second must not be negative, got %d", c.Batch.RequestsPerSecond)
	}
	return nil
}

// Timeout converts TimeoutSeconds to a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}
