// Package main provides the entry point for the fluxionctl supervisor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxion-ml/fluxionctl/cmd/fluxionctl/commands"
	"github.com/fluxion-ml/fluxionctl/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "fluxionctl",
		Short: "Fluxion Supervisor - Launch and manage the fluxion-lsp analysis server",
		Long: `Fluxionctl supervises the fluxion-lsp deep learning analysis server.

Commands:
  run       Launch fluxion-lsp and supervise it in the foreground`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "fluxionctl %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
