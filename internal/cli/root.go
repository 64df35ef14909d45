// Package cli provides the instrumentord command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"instrumentor/internal/config"
	coreerrors "instrumentor/internal/core/errors"
	corelog "instrumentor/internal/core/log"
	"instrumentor/internal/store"
	"instrumentor/internal/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "instrumentord",
	Short: "Instrumentor - shared-store metrics aggregation",
	Long: `Instrumentor aggregates metrics from many independent processes into one
namespaced shared store and exposes the combined view for scraping.

Quick Start:
  instrumentord serve               Serve /metrics for the configured namespace
  instrumentord dump                Print the namespace's exposition text once`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads configuration, installs the logger and connects the store.
func setup(ctx context.Context) (*config.Config, store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := corelog.NewFromConfig(&cfg.Log)
	if err != nil {
		return nil, nil, coreerrors.Wrap(err, coreerrors.CodeConfigError, "invalid log configuration")
	}
	corelog.SetDefault(logger)

	var st store.Store
	switch cfg.Storage.Type {
	case "memory":
		st = store.NewMemoryStore()
	default:
		st, err = store.NewRedisStore(ctx, &cfg.Storage.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
	}
	return cfg, st, nil
}
