package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyFlags struct {
	evidenceID string
	actor      string
	format     string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a record's integrity",
	Long: `Re-derive the content hash of an archived record and compare it to
the hash captured at archival time.

A mismatch flags the record as tampered. Every verification, pass or
fail, appends a custody entry, so the check itself is part of the
evidence trail.

Examples:
  quaestor verify --id 4f7b... --actor examiner-1`,
	RunE: runVerify,
}

var clearFlagCmd = &cobra.Command{
	Use:   "clear-flag",
	Short: "Clear a record's tamper flag",
	Long: `Clear a tamper flag after review and immediately re-verify the record.

The override is recorded in the chain of custody with the supplied
reason; the flag returns if the follow-up verification fails again.

Examples:
  quaestor verify clear-flag --id 4f7b... --actor supervisor-2 --reason "storage fault confirmed, blob restored from backup"`,
	RunE: runClearFlag,
}

var clearFlagReason string

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(clearFlagCmd)

	verifyCmd.PersistentFlags().StringVar(&verifyFlags.evidenceID, "id", "", "evidence record ID (required)")
	verifyCmd.PersistentFlags().StringVar(&verifyFlags.actor, "actor", "", "acting examiner ID (required)")
	verifyCmd.PersistentFlags().StringVar(&verifyFlags.format, "format", "text", "output format: text, json")
	verifyCmd.MarkPersistentFlagRequired("id")
	verifyCmd.MarkPersistentFlagRequired("actor")

	clearFlagCmd.Flags().StringVar(&clearFlagReason, "reason", "", "override reason recorded in custody (required)")
	clearFlagCmd.MarkFlagRequired("reason")
}

func runVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.ledger.Verify(context.Background(), verifyFlags.evidenceID, verifyFlags.actor)
	if err != nil {
		return err
	}

	if verifyFlags.format == "json" {
		return printJSON(outcome, "")
	}

	if outcome.Valid {
		fmt.Printf("VALID    %s  %s\n", outcome.EvidenceID, outcome.OriginalHash)
		return nil
	}
	fmt.Printf("TAMPERED %s\n", outcome.EvidenceID)
	fmt.Printf("  archived hash:   %s\n", outcome.OriginalHash)
	fmt.Printf("  recomputed hash: %s\n", outcome.RecomputedHash)
	return fmt.Errorf("integrity verification failed for %s", outcome.EvidenceID)
}

func runClearFlag(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.ledger.ClearFlag(context.Background(), verifyFlags.evidenceID, verifyFlags.actor, clearFlagReason)
	if err != nil {
		return err
	}

	if verifyFlags.format == "json" {
		return printJSON(outcome, "")
	}

	if outcome.Valid {
		fmt.Printf("flag cleared, record re-verified: %s\n", outcome.EvidenceID)
		return nil
	}
	fmt.Printf("flag cleared but re-verification failed: %s remains flagged\n", outcome.EvidenceID)
	return fmt.Errorf("integrity verification failed for %s", outcome.EvidenceID)
}
