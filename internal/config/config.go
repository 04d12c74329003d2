package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path                     string `yaml:"path"`
	MaintenanceIntervalHours int    `yaml:"maintenance_interval_hours"`
}

// StorageLocation describes one library root configured by the user.
// External locations (USB drives, network mounts) may come and go; the
// scanner only visits them while they are online.
type StorageLocation struct {
	Path     string `yaml:"path"`
	External bool   `yaml:"external"`
}

// StorageConfig holds the configured storage locations.
type StorageConfig struct {
	Locations []StorageLocation `yaml:"locations"`
}

// ScannerConfig holds import scanner settings.
type ScannerConfig struct {
	BatchSize             int     `yaml:"batch_size"`
	Workers               int     `yaml:"workers"`
	ProbeRate             float64 `yaml:"probe_rate"`
	RescanIntervalMinutes int     `yaml:"rescan_interval_minutes"`
	// IncludeUnknownStorage controls whether an external location the
	// filesystem monitor does not recognize is scanned as if it were
	// online. Newly added locations are not tracked until the monitor
	// picks them up, so the default is true.
	IncludeUnknownStorage bool `yaml:"include_unknown_storage"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                     "/data/audiocove.db",
			MaintenanceIntervalHours: 24,
		},
		Scanner: ScannerConfig{
			BatchSize:             100,
			Workers:               0, // 0 = number of CPUs
			RescanIntervalMinutes: 0, // 0 = disabled
			IncludeUnknownStorage: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from AC_CONFIG_PATH or the default
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("AC_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("AC_STORAGE_PATHS"); v != "" {
		// Comma-separated list of non-external roots, replacing any
		// locations from the config file.
		c.Storage.Locations = nil
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				c.Storage.Locations = append(c.Storage.Locations, StorageLocation{Path: p})
			}
		}
	}
	if v := os.Getenv("AC_SCAN_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.BatchSize = n
		}
	}
	if v := os.Getenv("AC_SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.Workers = n
		}
	}
	if v := os.Getenv("AC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AC_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Scanner.BatchSize < 1 {
		return fmt.Errorf("scanner batch_size must be positive, got %d", c.Scanner.BatchSize)
	}
	if c.Scanner.Workers < 0 {
		return fmt.Errorf("scanner workers must not be negative, got %d", c.Scanner.Workers)
	}
	if c.Scanner.ProbeRate < 0 {
		return fmt.Errorf("scanner probe_rate must not be negative, got %v", c.Scanner.ProbeRate)
	}
	for i, loc := range c.Storage.Locations {
		if loc.Path == "" {
			return fmt.Errorf("storage location %d has an empty path", i)
		}
	}
	return nil
}
