package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var accessFlags struct {
	evidenceID string
	actor      string
	purpose    string
	format     string
}

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Record an access to an evidence record",
	Long: `Record that an examiner accessed an evidence record and print the
record with its full chain of custody.

Every access appends a custody entry naming the actor and purpose.

Examples:
  quaestor access --id 4f7b... --actor examiner-1 --purpose "initial review"`,
	RunE: runAccess,
}

func init() {
	rootCmd.AddCommand(accessCmd)
	accessCmd.Flags().StringVar(&accessFlags.evidenceID, "id", "", "evidence record ID (required)")
	accessCmd.Flags().StringVar(&accessFlags.actor, "actor", "", "acting examiner ID (required)")
	accessCmd.Flags().StringVar(&accessFlags.purpose, "purpose", "", "access purpose recorded in custody")
	accessCmd.Flags().StringVar(&accessFlags.format, "format", "text", "output format: text, json")
	accessCmd.MarkFlagRequired("id")
	accessCmd.MarkFlagRequired("actor")
}

func runAccess(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.ledger.Access(context.Background(), accessFlags.evidenceID, accessFlags.actor, accessFlags.purpose)
	if err != nil {
		return err
	}

	if accessFlags.format == "json" {
		return printJSON(record, "")
	}

	fmt.Printf("%s  %s  case=%s  status=%s\n", record.ID, record.Name, record.CaseID, record.Status)
	fmt.Printf("content hash: %s\n", record.ContentHash)
	fmt.Printf("chain of custody (%d entries):\n", len(record.Custody))
	for _, entry := range record.Custody {
		fmt.Printf("  %s  %-9s %-14s %s\n",
			entry.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			entry.Action, entry.ActorID, entry.Note)
	}
	return nil
}
