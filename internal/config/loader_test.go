package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxion-ml/fluxionctl/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fluxionctl.yaml")

	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.Server.Path)
	assert.Zero(t, cfg.Server.StopTimeout)
	assert.Empty(t, cfg.Diagnostics.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadConfig_ExplicitMissingFileErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
server:
  path: /usr/local/bin/custom-fluxion
  args: ["--experimental"]
  stop_timeout: 5s
diagnostics:
  addr: 127.0.0.1:9290
log:
  level: debug
  json: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/custom-fluxion", cfg.Server.Path)
	assert.Equal(t, []string{"--experimental"}, cfg.Server.Args)
	assert.Equal(t, 5*time.Second, cfg.Server.StopTimeout)
	assert.Equal(t, "127.0.0.1:9290", cfg.Diagnostics.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "log:\n  level: loud\n")

	_, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestLoadConfig_NegativeStopTimeout(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "server:\n  stop_timeout: -1s\n")

	_, err := config.LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_timeout")
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  slog.Level
	}{
		{level: "", want: slog.LevelInfo},
		{level: "debug", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
	}

	for _, tt := range tests {
		lc := config.LogConfig{Level: tt.level}

		level, err := lc.SlogLevel()
		require.NoError(t, err)
		assert.Equal(t, tt.want, level)
	}
}
