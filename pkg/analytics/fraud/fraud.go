// Package fraud implements the fraud-pattern analyzer over
// transaction-shaped records. Five sub-analyses run independently and
// contribute additively to the risk score: Benford's Law conformance,
// circular transfer detection, round-number share, duplicate pairs, and
// per-account velocity.
package fraud

import (
	"math"
	"time"

	"casefile-hq/quaestor/pkg/analytics"
)

// Risk score contributions per sub-analysis. The sum is clamped to
// analytics.MaxRiskScore.
const (
	ScoreBenford   = 25
	ScoreCycles    = 35
	ScoreRound     = 15
	ScoreDuplicate = 20
	ScoreVelocity  = 10
)

// Finding categories produced by this package.
const (
	CategoryBenford   = "benford-anomaly"
	CategoryCycle     = "circular-transfer"
	CategoryRound     = "round-number"
	CategoryDuplicate = "duplicate-transaction"
	CategoryVelocity  = "velocity-anomaly"
)

// Config contains the detection thresholds.
type Config struct {
	// BenfordDeviation is the relative deviation above which a leading
	// digit counts as anomalous.
	// Default: 0.20
	BenfordDeviation float64

	// BenfordDigitLimit is the number of anomalous digits that must be
	// exceeded for the Benford check to fire.
	// Default: 3
	BenfordDigitLimit int

	// MaxCycleLength bounds cycle search depth in hops.
	// Default: 8
	MaxCycleLength int

	// RoundShare is the fraction of round-value transactions above which
	// the round-number check fires.
	// Default: 0.30
	RoundShare float64

	// DuplicateWindow is the maximum timestamp gap for two otherwise
	// identical transactions to count as a duplicate pair.
	// Default: 300 seconds
	DuplicateWindow time.Duration

	// VelocityThreshold is the transaction count an account must exceed
	// within VelocityWindow to be flagged.
	// Default: 50
	VelocityThreshold int

	// VelocityWindow is the rolling window for the velocity check.
	// Default: 60 minutes
	VelocityWindow time.Duration
}

// DefaultConfig returns the default detection thresholds.
func DefaultConfig() *Config {
	return &Config{
		BenfordDeviation:  0.20,
		BenfordDigitLimit: 3,
		MaxCycleLength:    8,
		RoundShare:        0.30,
		DuplicateWindow:   300 * time.Second,
		VelocityThreshold: 50,
		VelocityWindow:    60 * time.Minute,
	}
}

// Detector is the stateless fraud analyzer. It is safe for concurrent use;
// every Analyze call allocates fresh local state.
type Detector struct {
	config *Config
}

// NewDetector creates a fraud detector.
func NewDetector(config *Config) *Detector {
	if config == nil {
		config = DefaultConfig()
	}
	return &Detector{config: config}
}

// Analyze runs all sub-analyses over the transactions and returns one
// immutable result. Transactions missing a timestamp or party are rejected
// with an InvalidInputError before any analysis runs.
func (d *Detector) Analyze(transactions []analytics.Transaction) (*analytics.Result, error) {
	if err := validate(transactions); err != nil {
		return nil, err
	}

	result := &analytics.Result{
		Kind:        analytics.KindFraud,
		GeneratedAt: time.Now(),
		Metadata: map[string]any{
			"transaction_count": len(transactions),
		},
	}

	score := 0

	if findings, fired := d.checkBenford(transactions); fired {
		score += ScoreBenford
		result.Findings = append(result.Findings, findings...)
	}

	if findings, fired := d.checkCycles(transactions); fired {
		// Single contribution regardless of cycle count.
		score += ScoreCycles
		result.Findings = append(result.Findings, findings...)
	}

	if findings, fired := d.checkRoundNumbers(transactions); fired {
		score += ScoreRound
		result.Findings = append(result.Findings, findings...)
	}

	if findings, fired := d.checkDuplicates(transactions); fired {
		score += ScoreDuplicate
		result.Findings = append(result.Findings, findings...)
	}

	if findings, fired := d.checkVelocity(transactions); fired {
		score += ScoreVelocity
		result.Findings = append(result.Findings, findings...)
	}

	result.RiskScore = analytics.ClampScore(score)
	result.Recommendations = recommend(result.Findings)

	return result, nil
}

func validate(transactions []analytics.Transaction) error {
	for i, tx := range transactions {
		if tx.Timestamp.IsZero() {
			return analytics.NewInvalidInputError(i, "timestamp", "missing timestamp")
		}
		if tx.From == "" {
			return analytics.NewInvalidInputError(i, "from", "missing source account")
		}
		if tx.To == "" {
			return analytics.NewInvalidInputError(i, "to", "missing destination account")
		}
		if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
			return analytics.NewInvalidInputError(i, "amount", "non-finite amount")
		}
	}
	return nil
}

// recommend derives recommendations deterministically from the finding
// categories that fired.
func recommend(findings []analytics.Finding) []string {
	recommendations := map[string]string{
		CategoryCycle:     "Freeze the implicated accounts and escalate to the financial crimes unit.",
		CategoryBenford:   "Audit the source records: the amount distribution suggests fabricated figures.",
		CategoryRound:     "Review round-value transfers for structuring activity.",
		CategoryDuplicate: "Deduplicate at the source and review repeated transfers for replay or double-billing.",
		CategoryVelocity:  "Rate-limit the flagged accounts and review their recent activity.",
	}

	// Stable output order regardless of finding order.
	order := []string{CategoryCycle, CategoryBenford, CategoryRound, CategoryDuplicate, CategoryVelocity}

	seen := make(map[string]bool)
	for _, finding := range findings {
		seen[finding.Category] = true
	}

	var out []string
	for _, category := range order {
		if seen[category] {
			out = append(out, recommendations[category])
		}
	}
	return out
}
