package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/jobboard-scraper/internal/orchestrator"
)

// newRunCmd scrapes every configured board once. Source failures are part
// of the summary; only setup errors make the command fail.
func newRunCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape every configured board once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary := appInstance.Run(ctx, appInstance.NewRunID())
			if asJSON {
				return writeSummaryJSON(cmd.OutOrStdout(), summary)
			}
			writeSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")
	return cmd
}

func writeSummary(w io.Writer, s orchestrator.Summary) {
	for _, res := range s.Results {
		if res.Failed() {
			fmt.Fprintf(w, "[FAIL] %s: %s\n", res.Source, res.Error)
			continue
		}
		fmt.Fprintf(w, "[OK] %s: %d stored, %d dropped, %d new\n", res.Source, res.Stored, res.Dropped, res.New)
	}
	fmt.Fprintf(w, "%d/%d sources succeeded, %d records stored in %s\n",
		s.Succeeded, len(s.Results), s.Stored, s.Elapsed.Round(time.Millisecond))
}

func writeSummaryJSON(w io.Writer, s orchestrator.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}
