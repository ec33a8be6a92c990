// Package config loads the configuration of the sqlbind command from YAML
// files, with defaults for every setting and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlbind/dialect"
	"github.com/syssam/sqlbind/mapping"
)

// AllDialects selects every built-in dialect.
const AllDialects = "all"

// Config holds the settings of the sqlbind command.
type Config struct {
	// Dialect is the name of the dialect statements are rendered for,
	// or "all". When executing against a database, an empty dialect
	// means the dialect is resolved from the connection.
	Dialect string `yaml:"dialect"`

	// Naming is the naming strategy of mapped entities: "snake_case" or "singular".
	Naming string `yaml:"naming"`

	Log   LogConfig   `yaml:"log"`
	Stats StatsConfig `yaml:"stats"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN or ERROR.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`

	// FilePath enables a rotated log file in addition to stderr.
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// StatsConfig holds query statistics settings.
type StatsConfig struct {
	// SlowThreshold is the duration above which statements are logged
	// as slow. 0 disables slow statement logging.
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// DefaultConfig returns a Config with the default settings.
func DefaultConfig() *Config {
	return &Config{
		Dialect: AllDialects,
		Naming:  "snake_case",
		Log: LogConfig{
			Level:      "INFO",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Stats: StatsConfig{
			SlowThreshold: 200 * time.Millisecond,
		},
	}
}

// Load loads the configuration from a YAML file and applies environment
// overrides. Settings missing from the file keep their defaults, and a
// missing file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies the SQLBIND_* and LOG_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("SQLBIND_DIALECT"); v != "" {
		c.Dialect = v
	}
	if v := os.Getenv("SQLBIND_NAMING"); v != "" {
		c.Naming = v
	}
	if v := os.Getenv("SQLBIND_SLOW_THRESHOLD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: SQLBIND_SLOW_THRESHOLD: %w", err)
		}
		c.Stats.SlowThreshold = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		c.Log.FilePath = v
	}
	return nil
}

// Validate checks that all settings hold known values.
func (c *Config) Validate() error {
	if _, err := c.Dialects(); err != nil {
		return err
	}
	if _, err := c.NamingStrategy(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Stats.SlowThreshold < 0 {
		return fmt.Errorf("config: negative slow threshold %s", c.Stats.SlowThreshold)
	}
	return nil
}

// Dialects returns the dialects selected by the configuration. An empty
// dialect or "all" selects every built-in dialect.
func (c *Config) Dialects() ([]*dialect.Dialect, error) {
	if c.Dialect == "" || strings.EqualFold(c.Dialect, AllDialects) {
		return dialect.Dialects(), nil
	}
	d, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return []*dialect.Dialect{d}, nil
}

// NamingStrategy returns the configured naming strategy.
func (c *Config) NamingStrategy() (mapping.NamingStrategy, error) {
	s, ok := mapping.NamingStrategyOf(c.Naming)
	if !ok {
		return nil, fmt.Errorf("config: unknown naming strategy %q", c.Naming)
	}
	return s, nil
}
