package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var summaryFlags struct {
	caseID string
	format string
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize a case",
	Long: `Summarize the evidence archived under a case: record count, total
size, and the aggregate integrity status.

The integrity status is "all_verified" when every record has a passing
verification, "partially_verified" when some do, and "unverified" when
none do. Summarizing is a read and does not touch any chain of custody.

Examples:
  quaestor summary --case CASE-2026-001
  quaestor summary --case CASE-2026-001 --format json`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryFlags.caseID, "case", "", "case ID (required)")
	summaryCmd.Flags().StringVar(&summaryFlags.format, "format", "text", "output format: text, json")
	summaryCmd.MarkFlagRequired("case")
}

func runSummary(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.ledger.CaseSummary(context.Background(), summaryFlags.caseID)
	if err != nil {
		return err
	}

	if summaryFlags.format == "json" {
		return printJSON(summary, "")
	}

	fmt.Printf("case %s: %d records, %d bytes, integrity %s\n",
		summary.CaseID, summary.Count, summary.TotalSize, summary.IntegrityStatus)
	for _, record := range summary.Records {
		verified := " "
		if record.IntegrityVerified {
			verified = "*"
		}
		fmt.Printf("  %s %s  %-30s %-10s %d bytes\n",
			verified, record.ID, record.Name, record.Status, record.Size)
	}
	return nil
}
