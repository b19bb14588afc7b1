// Package launch computes the process launch configuration for the external
// fluxion-lsp analysis server.
package launch

import (
	"os"
	"sort"
	"strings"
)

const (
	// ServerPathEnv is the environment variable that overrides the path to
	// the fluxion-lsp executable.
	ServerPathEnv = "SERVER_PATH"

	// DefaultServerName is the executable name resolved from PATH when no
	// override is set.
	DefaultServerName = "fluxion-lsp"

	// DebugLogEnv is the environment variable the server reads for its log
	// filter. fluxion-lsp is an env_logger binary.
	DebugLogEnv = "RUST_LOG"

	// DebugLogLevel raises the server's log verbosity to debug.
	DebugLogLevel = "debug"
)

// Config describes how to spawn the external analysis server. The same
// configuration is used for normal and debug invocation.
type Config struct {
	// Command is the executable path or name of the server binary.
	Command string

	// Args are the arguments passed to the server. fluxion-lsp speaks LSP
	// over stdio and takes none.
	Args []string

	// Env is the full launch environment in "KEY=VALUE" form.
	Env []string
}

// Resolve computes the launch configuration from the host process
// environment: the executable from ServerPathEnv (falling back to
// DefaultServerName) and the inherited environment overlaid with the
// debug-log override.
func Resolve() Config {
	return ResolveFrom(os.Getenv(ServerPathEnv), os.Environ())
}

// ResolveFrom is the pure core of [Resolve], split out for testing.
func ResolveFrom(pathOverride string, environ []string) Config {
	command := pathOverride
	if command == "" {
		command = DefaultServerName
	}

	return Config{
		Command: command,
		Env:     MergeEnv(environ, map[string]string{DebugLogEnv: DebugLogLevel}),
	}
}

// MergeEnv overlays overrides onto a base environment in "KEY=VALUE" form.
// Existing keys are replaced in place; new keys are appended in sorted order
// so the result is deterministic. The base slice is not modified.
func MergeEnv(base []string, overrides map[string]string) []string {
	merged := make([]string, 0, len(base)+len(overrides))
	remaining := make(map[string]string, len(overrides))

	for key, value := range overrides {
		remaining[key] = value
	}

	for _, entry := range base {
		key, _, found := strings.Cut(entry, "=")
		if !found {
			merged = append(merged, entry)

			continue
		}

		if value, override := remaining[key]; override {
			merged = append(merged, key+"="+value)
			delete(remaining, key)

			continue
		}

		merged = append(merged, entry)
	}

	appended := make([]string, 0, len(remaining))
	for key, value := range remaining {
		appended = append(appended, key+"="+value)
	}

	sort.Strings(appended)

	return append(merged, appended...)
}
