package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobboard-scraper/internal/sources"
)

// newSourcesCmd lists every registered board and marks the configured ones.
func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "sources",
		Short:       "List the registered job boards",
		Annotations: map[string]string{skipApp: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range sources.Names() {
				mark := " "
				if slices.Contains(cfg.Scrape.Sources, name) {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, name)
			}
			return nil
		},
	}
}
