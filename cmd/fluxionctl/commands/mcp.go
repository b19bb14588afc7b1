package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxion-ml/fluxionctl/internal/config"
	"github.com/fluxion-ml/fluxionctl/internal/host"
	"github.com/fluxion-ml/fluxionctl/internal/lifecycle"
	"github.com/fluxion-ml/fluxionctl/internal/mcp"
	"github.com/fluxion-ml/fluxionctl/internal/observability"
	"github.com/fluxion-ml/fluxionctl/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server supervises a fluxion-lsp instance and exposes its lifecycle
as tools that AI agents can discover and invoke:
  - fluxion_status: Report the analysis server's lifecycle state
  - fluxion_restart: Stop and restart the analysis server
  - fluxion_hello: Invoke the hello-world notification command`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cfg, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			return runMCPServer(cobraCmd.Context(), cfg, providers.Logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default: .fluxionctl.yaml in CWD or $HOME)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}

// runMCPServer activates a supervisor for fluxion-lsp and serves its
// lifecycle over MCP until the agent disconnects.
func runMCPServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Stdout belongs to the MCP transport; notifications go to the log only.
	terminal := host.NewTerminalHost(logger, io.Discard)

	managerOpts := []lifecycle.Option{
		lifecycle.WithLaunchResolver(launchResolver(cfg)),
	}

	if cfg.Server.StopTimeout > 0 {
		managerOpts = append(managerOpts, lifecycle.WithStopTimeout(cfg.Server.StopTimeout))
	}

	mgr := lifecycle.New(terminal, logger, managerOpts...)

	bag := &host.DisposeBag{}
	defer bag.Dispose()

	err := mgr.Activate(ctx, bag)
	if err != nil {
		return err
	}

	defer func() {
		deactivateErr := mgr.Deactivate(context.Background())
		if deactivateErr != nil {
			logger.Warn("deactivate failed", "error", deactivateErr)
		}
	}()

	srv := mcp.NewServer(mcp.ServerDeps{
		Logger:     logger,
		Controller: mgr,
		Dispatcher: terminal,
	})

	return srv.Run(ctx)
}

func initMCPObservability(cfg *config.Config, debug bool) (observability.Providers, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.Mode = observability.ModeMCP
	obsCfg.LogLevel = level
	obsCfg.LogJSON = true

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return observability.Init(obsCfg)
}
