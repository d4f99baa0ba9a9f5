// Package analytics defines the shared result model for the forensic
// analyzers. Analyzers are pure functions: they allocate only fresh local
// state per call, never persist anything, and may be invoked concurrently
// without coordination.
package analytics

import (
	"time"
)

// Kind identifies which analyzer produced a result.
type Kind string

const (
	KindFraud       Kind = "fraud"
	KindTimeline    Kind = "timeline"
	KindCorrelation Kind = "correlation"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// MaxRiskScore is the upper bound of a result's risk score. Sub-analysis
// contributions are additive and clamped to this ceiling.
const MaxRiskScore = 100

// MaxRelatedRecords bounds the sample of related records attached to a
// finding so report size stays bounded.
const MaxRelatedRecords = 10

// Finding is one concrete observation made by an analyzer.
type Finding struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`

	// EvidenceRefs are formatted identifiers pointing at supporting data
	// (e.g. transaction references).
	EvidenceRefs []string `json:"evidence_refs,omitempty"`

	Timestamp *time.Time `json:"timestamp,omitempty"`

	// RelatedRecords is a bounded sample of the records behind the
	// finding, capped at MaxRelatedRecords.
	RelatedRecords []any `json:"related_records,omitempty"`
}

// Result is the immutable output of one analysis invocation. It is created
// once, returned to the caller, and never persisted by the analyzers.
type Result struct {
	Kind            Kind           `json:"kind"`
	RiskScore       int            `json:"risk_score"` // 0..MaxRiskScore
	Findings        []Finding      `json:"findings"`
	Recommendations []string       `json:"recommendations"`
	Metadata        map[string]any `json:"metadata"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// ClampScore clamps a raw additive score into [0, MaxRiskScore].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// CapRelated truncates a related-record sample to MaxRelatedRecords.
func CapRelated(records []any) []any {
	if len(records) > MaxRelatedRecords {
		return records[:MaxRelatedRecords]
	}
	return records
}

// Transaction is the transaction-shaped record the fraud and correlation
// engines operate on.
type Transaction struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Ref formats a stable identifier for a transaction, used in evidence
// references.
func (t Transaction) Ref() string {
	return t.From + "->" + t.To + "/" + t.Timestamp.UTC().Format(time.RFC3339) + "/" + formatAmount(t.Amount)
}

// Event is a time-stamped event for timeline reconstruction.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// SystemLog is a system log line for cross-stream correlation.
type SystemLog struct {
	Timestamp time.Time `json:"timestamp"`
	Host      string    `json:"host,omitempty"`
	Message   string    `json:"message"`
}

// AccessRecord is an access-control event for cross-stream correlation.
type AccessRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Resource  string    `json:"resource,omitempty"`
}
