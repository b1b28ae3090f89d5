package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anonto42/photowall/backend/internal/services"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge rejected submissions past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			retention, closeFn, err := ctx.openRetention(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			now := ctx.now()
			var report services.PurgeReport
			if dryRun {
				report, err = retention.Preview(cmd.Context(), now)
			} else {
				report, err = retention.PurgeRejected(cmd.Context(), now)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printPurgeReport(out, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only count what would be purged")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printPurgeReport(out io.Writer, report services.PurgeReport) {
	const stampLayout = "2006-01-02 15:04"
	if report.DryRun {
		fmt.Fprintf(out, "Would purge %d rejected submissions older than %s\n", report.Expired, report.Cutoff.Format(stampLayout))
		return
	}
	fmt.Fprintf(out, "Cutoff:         %s\n", report.Cutoff.Format(stampLayout))
	fmt.Fprintf(out, "Purged:         %d\n", report.Purged)
	fmt.Fprintf(out, "Images deleted: %d\n", report.ImagesDeleted)
	if report.Failed > 0 {
		fmt.Fprintf(out, "Failed:         %d (retried on the next run)\n", report.Failed)
	}
}
