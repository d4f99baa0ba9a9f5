package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"casefile-hq/quaestor/pkg/analytics"
	"casefile-hq/quaestor/pkg/analytics/correlate"
	"casefile-hq/quaestor/pkg/analytics/fraud"
	"casefile-hq/quaestor/pkg/analytics/timeline"
	"casefile-hq/quaestor/pkg/config"
)

var analyzeFlags struct {
	input        string
	transactions string
	logs         string
	access       string
	output       string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run forensic analytics",
	Long: `Run forensic analytics over investigation data.

Subcommands:
  fraud      - Benford's Law, circular transfers, round numbers, duplicates, velocity
  timeline   - event clustering and off-hours activity
  correlate  - cross-stream correlation of transactions, logs, and access records

Inputs are JSON arrays. Results are written as JSON with a risk score,
findings, and recommendations.

Examples:
  quaestor analyze fraud --input transactions.json
  quaestor analyze timeline --input events.json --output timeline-report.json
  quaestor analyze correlate --transactions t.json --access a.json`,
}

var analyzeFraudCmd = &cobra.Command{
	Use:   "fraud",
	Short: "Detect fraud patterns in transactions",
	RunE:  runAnalyzeFraud,
}

var analyzeTimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Reconstruct an event timeline",
	RunE:  runAnalyzeTimeline,
}

var analyzeCorrelateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate events across data streams",
	RunE:  runAnalyzeCorrelate,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeFraudCmd, analyzeTimelineCmd, analyzeCorrelateCmd)

	analyzeCmd.PersistentFlags().StringVarP(&analyzeFlags.output, "output", "o", "", "output file (default: stdout)")

	analyzeFraudCmd.Flags().StringVar(&analyzeFlags.input, "input", "", "transactions JSON file (required)")
	analyzeFraudCmd.MarkFlagRequired("input")

	analyzeTimelineCmd.Flags().StringVar(&analyzeFlags.input, "input", "", "events JSON file (required)")
	analyzeTimelineCmd.MarkFlagRequired("input")

	analyzeCorrelateCmd.Flags().StringVar(&analyzeFlags.transactions, "transactions", "", "transactions JSON file")
	analyzeCorrelateCmd.Flags().StringVar(&analyzeFlags.logs, "logs", "", "system logs JSON file")
	analyzeCorrelateCmd.Flags().StringVar(&analyzeFlags.access, "access", "", "access records JSON file")
}

func runAnalyzeFraud(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	var transactions []analytics.Transaction
	if err := readJSONFile(analyzeFlags.input, &transactions); err != nil {
		return err
	}

	detector := fraud.NewDetector(fraudConfig(cfg))
	result, err := detector.Analyze(transactions)
	if err != nil {
		return err
	}
	return printJSON(result, analyzeFlags.output)
}

func runAnalyzeTimeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	var events []analytics.Event
	if err := readJSONFile(analyzeFlags.input, &events); err != nil {
		return err
	}

	location := time.Local
	if tz := cfg.Analytics.Timeline.Timezone; tz != "" && tz != "Local" {
		location, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}

	analyzer := timeline.NewAnalyzer(&timeline.Config{
		ClusterGap:    cfg.Analytics.Timeline.ClusterGap,
		ClusterLimit:  cfg.Analytics.Timeline.ClusterLimit,
		OffHoursStart: cfg.Analytics.Timeline.OffHoursStart,
		OffHoursEnd:   cfg.Analytics.Timeline.OffHoursEnd,
		Location:      location,
	})
	result, err := analyzer.Analyze(events)
	if err != nil {
		return err
	}
	return printJSON(result, analyzeFlags.output)
}

func runAnalyzeCorrelate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	var (
		transactions []analytics.Transaction
		logs         []analytics.SystemLog
		access       []analytics.AccessRecord
	)
	if analyzeFlags.transactions != "" {
		if err := readJSONFile(analyzeFlags.transactions, &transactions); err != nil {
			return err
		}
	}
	if analyzeFlags.logs != "" {
		if err := readJSONFile(analyzeFlags.logs, &logs); err != nil {
			return err
		}
	}
	if analyzeFlags.access != "" {
		if err := readJSONFile(analyzeFlags.access, &access); err != nil {
			return err
		}
	}

	engine := correlate.NewEngine(&correlate.Config{Window: cfg.Analytics.Correlation.Window})
	result, err := engine.Analyze(transactions, logs, access)
	if err != nil {
		return err
	}
	return printJSON(result, analyzeFlags.output)
}

func fraudConfig(cfg *config.Config) *fraud.Config {
	return &fraud.Config{
		BenfordDeviation:  cfg.Analytics.Fraud.BenfordDeviation,
		BenfordDigitLimit: cfg.Analytics.Fraud.BenfordDigitLimit,
		MaxCycleLength:    cfg.Analytics.Fraud.MaxCycleLength,
		RoundShare:        cfg.Analytics.Fraud.RoundShare,
		DuplicateWindow:   cfg.Analytics.Fraud.DuplicateWindow,
		VelocityThreshold: cfg.Analytics.Fraud.VelocityThreshold,
		VelocityWindow:    cfg.Analytics.Fraud.VelocityWindow,
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
