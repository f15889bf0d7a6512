// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads switch, logging and stress harness settings
// from a YAML file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"code.hybscloud.com/litm"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a litm deployment.
type Config struct {
	Switch litm.Options `yaml:"switch"`
	Log    LogConfig    `yaml:"log"`
	Stress StressConfig `yaml:"stress"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StressConfig drives cmd/litmstress.
type StressConfig struct {
	Workers  int      `yaml:"workers"`
	Messages int      `yaml:"messages"`
	Bus      litm.Bus `yaml:"bus"`

	// ShutdownDelay is how long the leader waits before sending the
	// shutdown message.
	ShutdownDelay time.Duration `yaml:"shutdown_delay"`
}

// Default returns a configuration with the built-in defaults.
func Default() *Config {
	return &Config{
		Switch: litm.DefaultOptions(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Stress: StressConfig{
			Workers:       8,
			Messages:      100,
			Bus:           1,
			ShutdownDelay: time.Second,
		},
	}
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Switch.Validate(); err != nil {
		return fmt.Errorf("switch: %w", err)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}

	if c.Stress.Workers < 1 {
		return fmt.Errorf("stress.workers must be at least 1")
	}
	// The leader holds one more connection.
	if c.Stress.Workers+1 > c.Switch.MaxConnections {
		return fmt.Errorf("stress.workers must leave room for the leader within switch.max_connections (%d)", c.Switch.MaxConnections)
	}
	if c.Stress.Messages < 0 {
		return fmt.Errorf("stress.messages cannot be negative")
	}
	if c.Stress.Bus < 1 || int(c.Stress.Bus) > c.Switch.MaxBusses {
		return fmt.Errorf("stress.bus must be in [1, %d]", c.Switch.MaxBusses)
	}
	if c.Stress.ShutdownDelay < 0 {
		return fmt.Errorf("stress.shutdown_delay cannot be negative")
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewLogger builds a logger writing to w as configured.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if l.Format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
