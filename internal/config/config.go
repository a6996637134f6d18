// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoDatabase is returned by RequireDatabase when no database URL is set.
var ErrNoDatabase = errors.New("no database configured: set database.url or SCHEMAGUARD_DATABASE_URL")

// Config is the root configuration structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Models   ModelsConfig   `yaml:"models"`
	Logging  LoggingConfig  `yaml:"logging"`
	Output   OutputConfig   `yaml:"output"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig selects the database to inspect.
// URL schemes: postgres://, postgresql://, mysql://, sqlite://.
type DatabaseConfig struct {
	URL    string `yaml:"url"`
	Schema string `yaml:"schema"`
}

// ModelsConfig configures where model schemas come from.
type ModelsConfig struct {
	Source   string        `yaml:"source"` // "dir" or "db"
	Dir      string        `yaml:"dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Watch    bool          `yaml:"watch"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// OutputConfig configures report rendering.
type OutputConfig struct {
	Format string `yaml:"format"` // "text", "markdown" or "json"
}

// MetricsConfig toggles the metrics dump after each command.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file. ${VAR} references are
// expanded before parsing and SCHEMAGUARD_* variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv builds configuration from environment variables alone.
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// LoadDotEnv loads .env style files into the process environment without
// overwriting variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// RequireDatabase returns ErrNoDatabase when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrNoDatabase
	}
	return nil
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHEMAGUARD_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	} else if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Database.URL == "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SCHEMAGUARD_DATABASE_SCHEMA"); v != "" {
		cfg.Database.Schema = v
	}

	if v := os.Getenv("SCHEMAGUARD_MODELS_SOURCE"); v != "" {
		cfg.Models.Source = v
	}
	if v := os.Getenv("SCHEMAGUARD_MODELS_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("SCHEMAGUARD_MODELS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Models.CacheTTL = d
		}
	}
	if v := os.Getenv("SCHEMAGUARD_MODELS_WATCH"); v != "" {
		cfg.Models.Watch = parseBool(v)
	}

	if v := os.Getenv("SCHEMAGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCHEMAGUARD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SCHEMAGUARD_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}

	if v := os.Getenv("SCHEMAGUARD_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Database.Schema == "" {
		cfg.Database.Schema = "public"
	}

	if cfg.Models.Source == "" {
		cfg.Models.Source = "dir"
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
	if cfg.Models.CacheTTL == 0 {
		cfg.Models.CacheTTL = 5 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}
}

func validate(cfg *Config) error {
	switch cfg.Models.Source {
	case "dir":
	case "db":
		if cfg.Database.URL == "" {
			return fmt.Errorf("models.source 'db' requires database.url")
		}
	default:
		return fmt.Errorf("models.source must be 'dir' or 'db', got %q", cfg.Models.Source)
	}

	if cfg.Models.CacheTTL < 0 {
		return fmt.Errorf("models.cache_ttl must not be negative")
	}

	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'console' or 'json', got %q", cfg.Logging.Format)
	}

	validOutputFormats := map[string]bool{"text": true, "markdown": true, "json": true}
	if !validOutputFormats[cfg.Output.Format] {
		return fmt.Errorf("output.format must be one of: text, markdown, json")
	}

	return nil
}
