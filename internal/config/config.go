package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the GrapeIQ dashboard clients.
type Config struct {
	API       API       `yaml:"api"`
	Forecast  Forecast  `yaml:"forecast"`
	Dashboard Dashboard `yaml:"dashboard"`
	Logging   Logging   `yaml:"logging"`
}

// API holds the remote endpoint and tenant partition.
type API struct {
	BaseURL  string        `yaml:"base_url"`
	TenantID string        `yaml:"tenant_id"`
	Timeout  time.Duration `yaml:"timeout"`

	// RateLimit caps requests per minute. Zero means unlimited.
	RateLimit int `yaml:"rate_limit"`
	RateBurst int `yaml:"rate_burst"`
}

// Forecast controls the forecast job workflow.
type Forecast struct {
	// Secret is only sent to legacy backends that still gate the forecast
	// endpoints on a shared secret. Leave empty to rely on the bearer token.
	Secret         string        `yaml:"secret"`
	InitialDelay   time.Duration `yaml:"initial_delay"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	FilterDebounce time.Duration `yaml:"filter_debounce"`
	SettlePolls    int           `yaml:"settle_polls"`
}

// Dashboard controls the initial data load and chart export.
type Dashboard struct {
	MaxParallel int    `yaml:"max_parallel"`
	ExportDir   string `yaml:"export_dir"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL:   "http://127.0.0.1:8000/api",
			TenantID:  "a1b2c3d4-e5f6-7890-1234-567890abcdef",
			Timeout:   30 * time.Second,
			RateBurst: 7,
		},
		Forecast: Forecast{
			InitialDelay:   5 * time.Second,
			PollInterval:   time.Second,
			PollTimeout:    60 * time.Second,
			FilterDebounce: 300 * time.Millisecond,
			SettlePolls:    3,
		},
		Dashboard: Dashboard{
			MaxParallel: 1,
			ExportDir:   "charts",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration file at the given path on top of
// Default(), and then applies environment variable overrides. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAPEIQ_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("GRAPEIQ_TENANT_ID"); v != "" {
		cfg.API.TenantID = v
	}

	if v := os.Getenv("FORECAST_SECRET"); v != "" {
		cfg.Forecast.Secret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("GRAPEIQ_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
}

// Validate reports the first presence or shape problem in cfg.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.TenantID != "" {
		if _, err := uuid.Parse(c.API.TenantID); err != nil {
			return fmt.Errorf("api.tenant_id %q: %w", c.API.TenantID, err)
		}
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}
	if c.API.RateLimit < 0 || c.API.RateBurst < 0 {
		return errors.New("api.rate_limit and api.rate_burst must not be negative")
	}
	if c.Forecast.PollInterval <= 0 || c.Forecast.PollTimeout <= 0 {
		return errors.New("forecast.poll_interval and forecast.poll_timeout must be positive")
	}
	if c.Forecast.InitialDelay < 0 || c.Forecast.FilterDebounce < 0 {
		return errors.New("forecast delays must not be negative")
	}
	if c.Dashboard.MaxParallel < 1 {
		c.Dashboard.MaxParallel = 1
	}
	return nil
}
