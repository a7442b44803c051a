package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/job"
)

// newRunCmd creates and configures the 'run' subcommand, which performs
// a single crawl over the configured (or requested) sources.
func newRunCmd() *cobra.Command {
	var (
		sources    []string
		maxItems   int
		resultPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawls the news sources once",
		Long: `Fetches every configured source (or only the ones named with
--source), extracts deal candidates from the articles, and persists
them through the configured sink. Exits nonzero when fewer than half
of the sources completed.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := a.Config
			if maxItems > 0 {
				cfg.Crawl.GlobalMaxItems = maxItems
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, closeClient, err := buildClient(cfg, a.Logger)
			if err != nil {
				return err
			}
			defer closeClient()

			snk, err := buildSink(ctx, cfg.Sink, a.Logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := snk.Close(); cerr != nil {
					a.Logger.Warn("failed to close sink", zap.Error(cerr))
				}
			}()
			if perr := snk.Ping(ctx); perr != nil {
				return fmt.Errorf("sink unavailable: %w", perr)
			}

			summary, err := job.NewOrchestrator(cfg, client, snk, a.Logger).Run(ctx, sources)
			if err != nil {
				return fmt.Errorf("run crawl: %w", err)
			}

			if resultPath != "" {
				if werr := writeSummary(resultPath, summary); werr != nil {
					return fmt.Errorf("save results: %w", werr)
				}
			}
			if !summary.Healthy() {
				return fmt.Errorf("run degraded: %d of %d sources failed",
					summary.Failed, len(summary.Sources))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "source to crawl (repeatable; default is all)")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "override the global item budget for this run")
	cmd.Flags().StringVar(&resultPath, "save-results", "", "write the run summary as JSON to this file")

	return cmd
}

func writeSummary(path string, summary job.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
