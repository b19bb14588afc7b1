// Package config loads fluxionctl settings from file, environment, and
// defaults.
package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Config is the root configuration for fluxionctl.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// ServerConfig controls how the external analysis server is launched and
// stopped. The SERVER_PATH environment variable takes precedence over Path.
type ServerConfig struct {
	// Path to the fluxion-lsp executable. Empty resolves from PATH.
	Path string `mapstructure:"path" yaml:"path"`

	// Args passed to the server binary.
	Args []string `mapstructure:"args" yaml:"args"`

	// StopTimeout bounds the graceful shutdown handshake. Zero waits
	// indefinitely for the server to acknowledge shutdown.
	StopTimeout time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
}

// MarshalYAML renders StopTimeout in duration string form ("5s") instead of
// raw nanoseconds.
func (s ServerConfig) MarshalYAML() (any, error) {
	type plain struct {
		Path        string   `yaml:"path"`
		Args        []string `yaml:"args"`
		StopTimeout string   `yaml:"stop_timeout"`
	}

	return plain{Path: s.Path, Args: s.Args, StopTimeout: s.StopTimeout.String()}, nil
}

// DiagnosticsConfig controls the operational HTTP endpoints.
type DiagnosticsConfig struct {
	// Addr is the listen address for /healthz, /readyz, and /metrics.
	// Empty disables the diagnostics server.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	_, err := c.Log.SlogLevel()
	if err != nil {
		return err
	}

	if c.Server.StopTimeout < 0 {
		return fmt.Errorf("server.stop_timeout must not be negative, got %s", c.Server.StopTimeout)
	}

	return nil
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", l.Level)
	}
}
