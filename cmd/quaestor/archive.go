package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"casefile-hq/quaestor/pkg/ingest"
	"casefile-hq/quaestor/pkg/ledger"
)

var archiveFlags struct {
	caseID string
	source string
	tags   []string
	format string
}

var archiveCmd = &cobra.Command{
	Use:   "archive [files...]",
	Short: "Archive files into a case",
	Long: `Archive one or more files as evidence under a case.

Each file is hashed, encrypted, and stored with an initial chain-of-custody
entry. Files whose content already exists in the case are archived anyway
and tagged as duplicates.

Examples:
  # Archive a single exhibit
  quaestor archive --case CASE-2026-001 ./exhibit-a.pdf

  # Archive a batch with a source annotation
  quaestor archive --case CASE-2026-001 --source "seized-laptop" ./dump/*.bin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringVar(&archiveFlags.caseID, "case", "", "case ID (required)")
	archiveCmd.Flags().StringVar(&archiveFlags.source, "source", "manual", "source annotation recorded on each record")
	archiveCmd.Flags().StringSliceVar(&archiveFlags.tags, "tag", nil, "tag applied to each record (repeatable)")
	archiveCmd.Flags().StringVar(&archiveFlags.format, "format", "text", "output format: text, json")
	archiveCmd.MarkFlagRequired("case")
}

func runArchive(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	ingestConfig := ingest.DefaultConfig()
	ingestConfig.Concurrency = a.cfg.Ingest.Concurrency
	ingestConfig.QueueSize = a.cfg.Ingest.QueueSize
	ingestConfig.ErrorRetention = a.cfg.Ingest.ErrorRetention

	var mu sync.Mutex
	var archived []*ledger.EvidenceRecord
	ingestConfig.OnArchived = func(record *ledger.EvidenceRecord) {
		mu.Lock()
		archived = append(archived, record)
		mu.Unlock()
	}

	scheduler := ingest.NewScheduler(a.ledger, a.hash, ingestConfig, nil)
	scheduler.Start(ctx)

	artifacts := make([]ingest.Artifact, 0, len(args))
	for _, path := range args {
		artifact := ingest.NewFileArtifact(path, ledger.SourceMetadata{Source: archiveFlags.source})
		artifact.RecordTags = archiveFlags.tags
		artifacts = append(artifacts, artifact)
	}

	if _, err := scheduler.SubmitBatch(ctx, archiveFlags.caseID, artifacts); err != nil {
		scheduler.Close()
		return fmt.Errorf("failed to submit batch: %w", err)
	}

	scheduler.Wait()
	failed := failedItems(scheduler)
	scheduler.Close()

	if archiveFlags.format == "json" {
		return printJSON(archived, "")
	}

	for _, record := range archived {
		fmt.Printf("archived %s  %s  %s  (%d bytes)\n", record.ID, record.Name, record.ContentHash, record.Size)
	}
	for _, status := range failed {
		fmt.Printf("failed   %s: %v\n", status.Name, status.Err)
	}
	fmt.Printf("%d archived, %d failed\n", len(archived), len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed to archive", len(failed), len(args))
	}
	return nil
}

func failedItems(scheduler *ingest.Scheduler) []ingest.ItemStatus {
	var failed []ingest.ItemStatus
	for _, status := range scheduler.Snapshot() {
		if status.State == ingest.StateError {
			failed = append(failed, status)
		}
	}
	return failed
}
