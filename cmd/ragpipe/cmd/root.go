// Package cmd provides the CLI commands for ragpipe.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/logging"
	"github.com/ragpipe/ragpipe/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the ragpipe CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragpipe",
		Short: "Hybrid document retrieval pipeline",
		Long: `ragpipe ingests documents and answers queries with hybrid retrieval:
BM25 keyword search and semantic embedding search, combined with
Reciprocal Rank Fusion.

It runs entirely locally. Point it at a file or directory and query it.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("ragpipe version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .ragpipe.yaml config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging configures the default slog logger before any command runs.
func setupLogging(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
