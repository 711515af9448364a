// Package config loads plandeck configuration from environment variables,
// optionally overlaid with a YAML file for tuning thresholds.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"plandeck.db"`

	// API hardening
	APIKey         string `envconfig:"API_KEY"` // empty disables the auth gate
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"200"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`

	// Schedule cache
	PlanCacheSize int `envconfig:"PLAN_CACHE_SIZE" default:"256"`

	// Resource analyzer thresholds
	CriticalTaskThreshold int     `envconfig:"CRITICAL_TASK_THRESHOLD" default:"3"`
	UtilizationThreshold  float64 `envconfig:"UTILIZATION_THRESHOLD" default:"0.7"`

	// Slack (optional — the service runs API-only without it)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"SLACK_CHANNEL"`

	// Optional YAML overlay for the fields above
	ConfigFile string `envconfig:"CONFIG_FILE"`
}

// fileConfig is the YAML overlay shape. Only set fields override the
// environment values.
type fileConfig struct {
	CriticalTaskThreshold *int     `yaml:"critical_task_threshold"`
	UtilizationThreshold  *float64 `yaml:"utilization_threshold"`
	SlackChannel          *string  `yaml:"slack_channel"`
	PlanCacheSize         *int     `yaml:"plan_cache_size"`
}

// SlackEnabled returns true if Slack delivery is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// AuthEnabled returns true if the API-key gate is configured.
func (c *Config) AuthEnabled() bool {
	return c.APIKey != ""
}

// Development returns true when running in the development environment.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// is set, overlays the YAML file on top.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PLANDECK", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.ConfigFile != "" {
		if err := cfg.applyFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if fc.CriticalTaskThreshold != nil {
		c.CriticalTaskThreshold = *fc.CriticalTaskThreshold
	}
	if fc.UtilizationThreshold != nil {
		c.UtilizationThreshold = *fc.UtilizationThreshold
	}
	if fc.SlackChannel != nil {
		c.SlackChannel = *fc.SlackChannel
	}
	if fc.PlanCacheSize != nil {
		c.PlanCacheSize = *fc.PlanCacheSize
	}
	return nil
}

func (c *Config) validate() error {
	if c.CriticalTaskThreshold < 1 {
		return fmt.Errorf("critical task threshold must be >= 1, got %d", c.CriticalTaskThreshold)
	}
	if c.UtilizationThreshold <= 0 || c.UtilizationThreshold > 1 {
		return fmt.Errorf("utilization threshold must be in (0, 1], got %g", c.UtilizationThreshold)
	}
	if c.PlanCacheSize < 1 {
		return fmt.Errorf("plan cache size must be >= 1, got %d", c.PlanCacheSize)
	}
	return nil
}
