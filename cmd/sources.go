package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newSourcesCmd creates the 'sources' subcommand, which lists the
// configured news sources without crawling anything.
func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Lists the configured news sources",

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(a.Config.Sources) == 0 {
				fmt.Fprintln(out, "no sources configured")
				return nil
			}
			for _, src := range a.Config.Sources {
				mode := "static"
				if src.Render {
					mode = "rendered"
				}
				fmt.Fprintf(out, "%-20s %-8s %s\n", src.Name, mode, strings.Join(src.StartURLs, " "))
			}
			return nil
		},
	}
}
