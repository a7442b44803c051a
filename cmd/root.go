// Package cmd defines and implements the CLI commands for the dealcrawl
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/config"
	"github.com/mergertracker/dealcrawl/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App carries the loaded configuration and logger that every subcommand
// needs. It is built once in the root command's PersistentPreRunE and
// injected through the command context.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dealcrawl",
		Short: "A polite parallel crawler for M&A news.",
		Long: `dealcrawl fetches financial news sites in parallel, extracts
merger and acquisition deals from article text, and persists both the
raw articles and the structured deal candidates.`,
		SilenceUsage: true,

		// Runs before every subcommand's RunE: load config, build the
		// logger, and hand both to subcommands via the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				if _, err := os.Stat("dealcrawl.yaml"); err == nil {
					path = "dealcrawl.yaml"
				}
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, &App{Config: cfg, Logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*App); ok && a != nil {
				_ = a.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dealcrawl.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newScheduleCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*App, error) {
	a, ok := ctx.Value(appKey).(*App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}
