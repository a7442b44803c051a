package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mergertracker/dealcrawl/internal/admin"
	"github.com/mergertracker/dealcrawl/internal/job"
	"github.com/mergertracker/dealcrawl/internal/scheduler"
)

// newScheduleCmd creates the 'schedule' subcommand: the long-running
// daemon that fires recurring crawl jobs and serves the admin API.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Runs the crawl daemon with recurring jobs and the admin API",
		Long: `Starts the scheduler with the jobs from configuration (or a default
staggered schedule when none are configured) and serves health, metrics,
and job-control endpoints until interrupted.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := a.Config

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

			orch := job.NewOrchestrator(cfg, client, snk, a.Logger)
			run := func(runCtx context.Context, sources []string) error {
				summary, rerr := orch.Run(runCtx, sources)
				if rerr != nil {
					return rerr
				}
				if !summary.Healthy() {
					return fmt.Errorf("run degraded: success rate %.2f", summary.SuccessRate)
				}
				return nil
			}

			sched, err := scheduler.New(cfg.Scheduler.Timezone, run, a.Logger)
			if err != nil {
				return fmt.Errorf("init scheduler: %w", err)
			}
			jobs := cfg.Scheduler.Jobs
			if len(jobs) == 0 {
				jobs = scheduler.DefaultJobs(cfg.Sources)
			}
			for _, j := range jobs {
				if aerr := sched.AddJob(j); aerr != nil {
					return aerr
				}
			}
			sched.Start()
			defer sched.Stop()

			srv := &http.Server{
				Addr:              cfg.Admin.Addr,
				Handler:           admin.NewServer(sched, a.Logger).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("admin listener up", zap.String("addr", cfg.Admin.Addr))
				if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
					errCh <- serr
				}
			}()

			select {
			case <-ctx.Done():
				a.Logger.Info("shutdown signal received")
			case serr := <-errCh:
				return fmt.Errorf("admin server: %w", serr)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				a.Logger.Warn("admin server shutdown failed", zap.Error(serr))
			}
			return nil
		},
	}
}
