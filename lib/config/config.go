// Copyright 2026 The Sigmetraw Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the volume
// daemon.
//
// Configuration is loaded from a single YAML file specified by the
// SIGMETRAW_CONFIG environment variable or the --config flag. There
// are no fallbacks or automatic discovery; flags override file
// values. The file is optional — every field has a working default —
// but when a path is given the file must exist.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// SocketPath is the Unix socket the daemon listens on. Required;
	// usually supplied as a positional argument rather than the file.
	SocketPath string `yaml:"socket_path"`

	// Strict makes decoder soft anomalies fatal, the same switch the
	// SIGMET_STRICT environment variable flips for the one-shot
	// subcommands.
	Strict bool `yaml:"strict"`

	// LogLevel is the slog level name: debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
	}
}

// Load loads configuration from SIGMETRAW_CONFIG if it is set,
// otherwise returns the defaults.
func Load() (*Config, error) {
	path := os.Getenv("SIGMETRAW_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging
// over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.SocketPath == "" {
		errs = append(errs, fmt.Errorf("socket_path is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn, or error (got %q)", c.LogLevel))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
