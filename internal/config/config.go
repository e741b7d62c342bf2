// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Loader configuration
	Loader LoaderConfig `yaml:"loader"`

	// Analysis configuration
	Analysis AnalysisConfig `yaml:"analysis"`

	// Sampling configuration
	Sampling SamplingConfig `yaml:"sampling"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// LoaderConfig holds run-log discovery settings.
type LoaderConfig struct {
	Pattern string `envconfig:"SIMREV_LOG_PATTERN" yaml:"pattern"`
	Workers int    `envconfig:"SIMREV_LOAD_WORKERS" yaml:"workers"`
}

// AnalysisConfig holds analysis defaults.
type AnalysisConfig struct {
	// ResultFormat is the default curve unit (fraction, percentage,
	// number).
	ResultFormat string `envconfig:"SIMREV_RESULT_FORMAT" yaml:"result_format"`

	// WSSAt and RRFAt are the default metric targets in percent.
	WSSAt float64 `envconfig:"SIMREV_WSS_AT" yaml:"wss_at"`
	RRFAt float64 `envconfig:"SIMREV_RRF_AT" yaml:"rrf_at"`

	// AllowMiss lists the stopping tolerances (expected missed
	// relevant items).
	AllowMiss []float64 `envconfig:"SIMREV_ALLOW_MISS" yaml:"allow_miss"`

	// FinalLabels analyzes against the terminal labeling when set.
	FinalLabels bool `envconfig:"SIMREV_FINAL_LABELS" yaml:"final_labels"`
}

// SamplingConfig holds prior-knowledge sampling settings.
type SamplingConfig struct {
	PriorIncluded int   `envconfig:"SIMREV_PRIOR_INCLUDED" yaml:"prior_included"`
	PriorExcluded int   `envconfig:"SIMREV_PRIOR_EXCLUDED" yaml:"prior_excluded"`
	Seed          int64 `envconfig:"SIMREV_SEED" yaml:"seed"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"SIMREV_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"SIMREV_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Loader = LoaderConfig{
		Pattern: "*.json",
		Workers: 4,
	}

	cfg.Analysis = AnalysisConfig{
		ResultFormat: "fraction",
		WSSAt:        95,
		RRFAt:        10,
		AllowMiss:    []float64{0.1},
	}

	cfg.Sampling = SamplingConfig{
		PriorIncluded: 10,
		PriorExcluded: 10,
		Seed:          42,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Loader.Workers < 1 {
		errs = append(errs, "loader workers must be positive")
	}

	validFormats := map[string]bool{"fraction": true, "percentage": true, "number": true}
	if !validFormats[c.Analysis.ResultFormat] {
		errs = append(errs, fmt.Sprintf("invalid result format: %s (must be fraction, percentage, or number)", c.Analysis.ResultFormat))
	}

	if c.Analysis.WSSAt <= 0 || c.Analysis.WSSAt > 100 {
		errs = append(errs, "wss_at must be in (0, 100]")
	}
	if c.Analysis.RRFAt <= 0 || c.Analysis.RRFAt > 100 {
		errs = append(errs, "rrf_at must be in (0, 100]")
	}

	if len(c.Analysis.AllowMiss) == 0 {
		errs = append(errs, "allow_miss needs at least one tolerance")
	}
	for _, p := range c.Analysis.AllowMiss {
		if p < 0 {
			errs = append(errs, fmt.Sprintf("allow_miss tolerance %v must be non-negative", p))
		}
	}

	if c.Sampling.PriorIncluded < 0 || c.Sampling.PriorExcluded < 0 {
		errs = append(errs, "prior sample sizes must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
