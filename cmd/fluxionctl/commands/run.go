// Package commands implements CLI command handlers for fluxionctl.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fluxion-ml/fluxionctl/internal/config"
	"github.com/fluxion-ml/fluxionctl/internal/host"
	"github.com/fluxion-ml/fluxionctl/internal/launch"
	"github.com/fluxion-ml/fluxionctl/internal/lifecycle"
	"github.com/fluxion-ml/fluxionctl/internal/observability"
	"github.com/fluxion-ml/fluxionctl/pkg/version"
)

// ErrNotActivated is returned by the readiness probe before the lifecycle
// manager exists.
var ErrNotActivated = errors.New("supervisor not activated yet")

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath string
	diagAddr   string
}

// NewRunCommand creates the foreground supervisor command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch fluxion-lsp and supervise it in the foreground",
		Long: `Launch the fluxion-lsp analysis server over stdio and supervise it.

The server binary is resolved from the SERVER_PATH environment variable,
then from server.path in the config file, then from PATH. SIGHUP restarts
the server; SIGINT and SIGTERM shut it down gracefully.`,
		Args: cobra.NoArgs,
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file path (default: .fluxionctl.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&rc.diagAddr, "diagnostics-addr", "", "Listen address for /healthz, /readyz, /metrics (overrides config)")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	providers, err := initRunObservability(cfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	logger := providers.Logger
	terminal := host.NewTerminalHost(logger, cmd.OutOrStdout())

	managerOpts := []lifecycle.Option{
		lifecycle.WithLaunchResolver(launchResolver(cfg)),
	}

	if cfg.Server.StopTimeout > 0 {
		managerOpts = append(managerOpts, lifecycle.WithStopTimeout(cfg.Server.StopTimeout))
	}

	// The diagnostics server starts probing before the manager exists, so
	// the readiness closure resolves it through an atomic reference.
	var mgrRef atomic.Pointer[lifecycle.Manager]

	ready := func(ctx context.Context) error {
		mgr := mgrRef.Load()
		if mgr == nil {
			return ErrNotActivated
		}

		return mgr.ReadyCheck()(ctx)
	}

	diagAddr := rc.diagAddr
	if diagAddr == "" {
		diagAddr = cfg.Diagnostics.Addr
	}

	if diagAddr != "" {
		diag, metrics, diagErr := observability.NewDiagnosticsServer(diagAddr, ready)
		if diagErr != nil {
			return diagErr
		}

		defer func() {
			closeErr := diag.Close()
			if closeErr != nil {
				logger.Warn("diagnostics shutdown failed", "error", closeErr)
			}
		}()

		logger.Info("diagnostics listening", "addr", diag.Addr())

		managerOpts = append(managerOpts, lifecycle.WithMetrics(metrics))
	}

	mgr := lifecycle.New(terminal, logger, managerOpts...)
	mgrRef.Store(mgr)

	bag := &host.DisposeBag{}
	defer bag.Dispose()

	err = mgr.Activate(cmd.Context(), bag)
	if err != nil {
		return fmt.Errorf("activate supervisor: %w", err)
	}

	logger.Info("supervisor activated", "version", version.Version, "commands", terminal.Commands())

	rc.awaitSignals(cmd.Context(), terminal, logger)

	// Shutdown must not be cut short by an already-cancelled run context.
	err = mgr.Deactivate(context.Background())
	if err != nil {
		return fmt.Errorf("deactivate supervisor: %w", err)
	}

	logger.Info("supervisor stopped")

	return nil
}

// awaitSignals blocks until an interrupt or termination signal arrives.
// SIGHUP restarts the server through the host command and keeps waiting.
func (rc *RunCommand) awaitSignals(ctx context.Context, terminal *host.TerminalHost, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigCh:
			if sig != syscall.SIGHUP {
				logger.Info("shutdown signal received", "signal", sig.String())

				return
			}

			logger.Info("restart signal received")

			err := terminal.ExecuteCommand(ctx, lifecycle.CommandRestartServer)
			if err != nil {
				logger.Error("signal-triggered restart failed", "error", err)
			}
		}
	}
}

func launchResolver(cfg *config.Config) func() launch.Config {
	return func() launch.Config {
		override := os.Getenv(launch.ServerPathEnv)
		if override == "" {
			override = cfg.Server.Path
		}

		launchCfg := launch.ResolveFrom(override, os.Environ())
		launchCfg.Args = append([]string(nil), cfg.Server.Args...)

		return launchCfg
	}
}

func initRunObservability(cfg *config.Config) (observability.Providers, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.Mode = observability.ModeRun
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Log.JSON

	return observability.Init(obsCfg)
}
