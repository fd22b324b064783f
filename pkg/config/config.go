// Package config implements Brewin configuration loading.
package config

import (
	"bytes"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ProjectFile is the project-level config file name.
const ProjectFile = ".brewin.yaml"

// Limits bounds program execution.
type Limits struct {
	// MaxCallDepth caps the number of live activations.
	MaxCallDepth int `yaml:"maxCallDepth"`
	// MaxIterations caps total while-loop iterations; 0 means unlimited.
	MaxIterations int64 `yaml:"maxIterations"`
}

// Config holds interpreter settings.
type Config struct {
	Limits   Limits `yaml:"limits"`
	Pretty   bool   `yaml:"pretty"`
	LogLevel string `yaml:"logLevel"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Limits:   Limits{MaxCallDepth: 10000},
		LogLevel: "warn",
	}
}

// Load loads configuration for a project directory.
// Precedence: project (.brewin.yaml) → user (~/.brewin/config.yaml) → defaults.
func Load(projectDir string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return LoadFrom(projectDir, homeDir)
}

// LoadFrom is Load with an explicit home directory; an empty homeDir skips
// the user config.
func LoadFrom(projectDir, homeDir string) (*Config, error) {
	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if homeDir != "" {
		paths = append(paths, filepath.Join(homeDir, ".brewin", "config.yaml"))
	}

	for _, path := range paths {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return Default(), nil
}

// LoadFile reads one config file layered over the defaults. JSON files are
// accepted as well since JSON is valid YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	cfg.Source = path
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Limits.MaxCallDepth < 0 {
		return errors.Errorf("limits.maxCallDepth must be >= 0, got %d", c.Limits.MaxCallDepth)
	}
	if c.Limits.MaxIterations < 0 {
		return errors.Errorf("limits.maxIterations must be >= 0, got %d", c.Limits.MaxIterations)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// ParseLevel maps a level name to a slog.Level. The empty string means warn.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("unknown log level %q", name)
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
