// Package correlate cross-references transactions, system logs, and access
// records. It is an extension point: the reference implementation links
// account identifiers to access events near in time and may legitimately
// produce an empty finding set, but any implementation must return the same
// result shape.
package correlate

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"casefile-hq/quaestor/pkg/analytics"
)

// ScoreCorrelated is the risk contribution when correlated activity is
// found.
const ScoreCorrelated = 10

// CategoryCorrelated is the finding category for cross-stream matches.
const CategoryCorrelated = "correlated-activity"

// Config contains correlation thresholds.
type Config struct {
	// Window is the maximum distance between a transaction and an access
	// event for the two to correlate.
	// Default: 60 seconds
	Window time.Duration
}

// DefaultConfig returns the default correlation configuration.
func DefaultConfig() *Config {
	return &Config{Window: 60 * time.Second}
}

// Engine is the stateless correlation analyzer.
type Engine struct {
	config *Config
}

// NewEngine creates a correlation engine.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Analyze cross-references the three input streams. The reference
// implementation reports a finding when an account issuing a transaction
// also appears as the actor of an access record within the window.
func (e *Engine) Analyze(transactions []analytics.Transaction, logs []analytics.SystemLog, access []analytics.AccessRecord) (*analytics.Result, error) {
	result := &analytics.Result{
		Kind:        analytics.KindCorrelation,
		GeneratedAt: time.Now(),
		Findings:    []analytics.Finding{},
		Metadata: map[string]any{
			"transaction_count": len(transactions),
			"log_count":         len(logs),
			"access_count":      len(access),
		},
	}

	byActor := make(map[string][]analytics.AccessRecord)
	for _, record := range access {
		byActor[record.Actor] = append(byActor[record.Actor], record)
	}

	for _, tx := range transactions {
		for _, record := range byActor[tx.From] {
			gap := tx.Timestamp.Sub(record.Timestamp)
			if gap < 0 {
				gap = -gap
			}
			if gap > e.config.Window {
				continue
			}

			ts := tx.Timestamp
			result.Findings = append(result.Findings, analytics.Finding{
				ID:       uuid.New().String(),
				Severity: analytics.SeverityLow,
				Category: CategoryCorrelated,
				Description: fmt.Sprintf("account %s transacted within %s of an access event on %s",
					tx.From, gap, record.Resource),
				EvidenceRefs: []string{tx.Ref()},
				Timestamp:    &ts,
				RelatedRecords: analytics.CapRelated([]any{tx, record}),
			})
		}
	}

	if len(result.Findings) > 0 {
		result.RiskScore = analytics.ClampScore(ScoreCorrelated)
		result.Recommendations = []string{
			"Review the correlated access sessions alongside the transaction trail.",
		}
	}

	return result, nil
}
