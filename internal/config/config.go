// Package config loads simkernel run configuration.
//
// Order: defaults -> YAML file (when given) -> environment variables ->
// command-line flags (applied by the CLI).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/simkernel/internal/engine"
	"github.com/roach88/simkernel/internal/logging"
)

// Config is the full simkernel configuration.
type Config struct {
	Run     RunConfig     `json:"run" yaml:"run"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig controls how models are simulated.
type RunConfig struct {
	// Steps is the number of steps `run` executes when --steps is not given.
	Steps int `json:"steps" yaml:"steps"`

	// MaxSteps caps a single run. 0 disables the cap.
	MaxSteps int `json:"max_steps" yaml:"max_steps"`

	// StopOnSteadyState ends a run once a step changes nothing.
	StopOnSteadyState bool `json:"stop_on_steady_state" yaml:"stop_on_steady_state"`

	// IDPrefix switches entity and relation ids to "<prefix>-N" sequences so
	// runs can be replayed. Empty means UUIDv7 ids.
	IDPrefix string `json:"id_prefix" yaml:"id_prefix"`
}

// JournalConfig locates the SQLite journal.
type JournalConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Steps:    10,
			MaxSteps: engine.DefaultMaxSteps,
			IDPrefix: "e",
		},
		Journal: JournalConfig{
			Path: "simkernel.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load returns the defaults overlaid with the file at path (skipped when
// path is empty) and the SIMKERNEL_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields the
// file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Journal.Path = expandEnvVars(cfg.Journal.Path)
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Run.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Run.Steps)
	}
	if c.Run.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative, got %d", c.Run.MaxSteps)
	}
	if c.Run.MaxSteps > 0 && c.Run.Steps > c.Run.MaxSteps {
		return fmt.Errorf("steps (%d) exceeds max_steps (%d)", c.Run.Steps, c.Run.MaxSteps)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SIMKERNEL_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIMKERNEL_STEPS: invalid integer %q: %w", v, err)
		}
		cfg.Run.Steps = n
	}
	if v := os.Getenv("SIMKERNEL_MAX_STEPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIMKERNEL_MAX_STEPS: invalid integer %q: %w", v, err)
		}
		cfg.Run.MaxSteps = n
	}
	if v := os.Getenv("SIMKERNEL_DB"); v != "" {
		cfg.Journal.Path = v
	}
	if v := os.Getenv("SIMKERNEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SIMKERNEL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
