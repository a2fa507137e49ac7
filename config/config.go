// Package config handles loading qrgen configuration from a YAML file, an
// optional .env file and QRGEN_* environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// History controls the optional SQLite log of generated images.
type History struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds all application configuration values.
type Config struct {
	Output          string   `yaml:"output"`
	BoxSize         int      `yaml:"box_size"`
	Border          int      `yaml:"border"`
	Port            int      `yaml:"port"`
	DataDir         string   `yaml:"data_dir"`
	WebhookURL      string   `yaml:"webhook_url"`
	History         History  `yaml:"history"`
	LogLevel        string   `yaml:"log_level"`
	LogFile         string   `yaml:"log_file"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Output:          "qr.png",
		BoxSize:         10,
		Border:          4,
		Port:            8556,
		DataDir:         filepath.Join(homeDir, ".qrgen"),
		LogLevel:        "info",
		ShutdownTimeout: Duration{10 * time.Second},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file in the working directory
// is loaded into the environment first (existing variables win), then
// QRGEN_* variables override file and default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env file: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies QRGEN_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRGEN_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("QRGEN_BOX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BoxSize = n
		}
	}
	if v := os.Getenv("QRGEN_BORDER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Border = n
		}
	}
	if v := os.Getenv("QRGEN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRGEN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QRGEN_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("QRGEN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRGEN_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("QRGEN_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = Duration{d}
		}
	}
	if v := os.Getenv("QRGEN_HISTORY"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.History.Enabled = true
		case "false", "0", "no":
			cfg.History.Enabled = false
		}
	}
}

// Validate rejects values the generator cannot render with.
func (c *Config) Validate() error {
	if c.BoxSize <= 0 {
		return fmt.Errorf("box_size must be positive, got %d", c.BoxSize)
	}
	if c.Border < 0 {
		return fmt.Errorf("border must not be negative, got %d", c.Border)
	}
	if c.Output == "" {
		return errors.New("output must not be empty")
	}
	return nil
}

// HistoryPath returns the location of the history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}
