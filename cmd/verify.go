package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mergertracker/dealcrawl/internal/fetch"
)

// newVerifyCmd creates the 'verify' subcommand: a connectivity check
// that pings the sink and fetches each source's first start URL.
func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Checks sink and source connectivity",
		Long: `Pings the configured sink and fetches the first start URL of every
source, reporting each check. Exits nonzero when any check fails.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := a.Config
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			failures := 0

			snk, err := buildSink(ctx, cfg.Sink, a.Logger)
			if err != nil {
				failures++
				fmt.Fprintf(out, "sink (%s): FAIL: %v\n", cfg.Sink.Provider, err)
			} else {
				if perr := snk.Ping(ctx); perr != nil {
					failures++
					fmt.Fprintf(out, "sink (%s): FAIL: %v\n", cfg.Sink.Provider, perr)
				} else {
					fmt.Fprintf(out, "sink (%s): ok\n", cfg.Sink.Provider)
				}
				_ = snk.Close()
			}

			client, closeClient, err := buildClient(cfg, a.Logger)
			if err != nil {
				return err
			}
			defer closeClient()

			identity := fetch.DesktopIdentities()[0]
			for _, src := range cfg.Sources {
				reqCtx, cancel := context.WithTimeout(ctx, cfg.Crawl.RequestTimeout)
				resp, ferr := client.Fetch(reqCtx, fetch.Request{
					URL:      src.StartURLs[0],
					Identity: identity,
					Render:   src.Render,
				})
				cancel()
				if ferr != nil {
					failures++
					fmt.Fprintf(out, "source %s: FAIL: %v\n", src.Name, ferr)
					continue
				}
				fmt.Fprintf(out, "source %s: ok (status %d, %d bytes)\n",
					src.Name, resp.StatusCode, len(resp.Body))
			}

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
}
