package fraud

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"casefile-hq/quaestor/pkg/analytics"
)

const amountEpsilon = 1e-9

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// isMultiple reports whether a is a multiple of base within floating-point
// tolerance.
func isMultiple(a, base float64) bool {
	m := math.Mod(a, base)
	return m < amountEpsilon || base-m < amountEpsilon
}

// isRound reports whether an amount is a multiple of 100 or 1000.
func isRound(amount float64) bool {
	a := math.Abs(amount)
	if a == 0 {
		return false
	}
	return isMultiple(a, 100) || isMultiple(a, 1000)
}

// checkRoundNumbers fires when round-value transactions exceed the
// configured share of the total.
func (d *Detector) checkRoundNumbers(transactions []analytics.Transaction) ([]analytics.Finding, bool) {
	if len(transactions) == 0 {
		return nil, false
	}

	var round []analytics.Transaction
	for _, tx := range transactions {
		if isRound(tx.Amount) {
			round = append(round, tx)
		}
	}

	share := float64(len(round)) / float64(len(transactions))
	if share <= d.config.RoundShare {
		return nil, false
	}

	related := make([]any, 0, len(round))
	refs := make([]string, 0, len(round))
	for _, tx := range round {
		related = append(related, tx)
		refs = append(refs, tx.Ref())
	}
	if len(refs) > analytics.MaxRelatedRecords {
		refs = refs[:analytics.MaxRelatedRecords]
	}

	finding := analytics.Finding{
		ID:       uuid.New().String(),
		Severity: analytics.SeverityMedium,
		Category: CategoryRound,
		Description: fmt.Sprintf("%.0f%% of transactions are round multiples of 100 or 1000 (%d of %d)",
			share*100, len(round), len(transactions)),
		EvidenceRefs:   refs,
		RelatedRecords: analytics.CapRelated(related),
	}

	return []analytics.Finding{finding}, true
}

// pairKey groups transactions that are candidates for duplicate pairing.
type pairKey struct {
	from   string
	to     string
	amount float64
}

// checkDuplicates groups transactions by (from, to, amount) and reports
// every pair within a group whose timestamps differ by less than the
// duplicate window.
func (d *Detector) checkDuplicates(transactions []analytics.Transaction) ([]analytics.Finding, bool) {
	groups := make(map[pairKey][]analytics.Transaction)
	var keys []pairKey
	for _, tx := range transactions {
		key := pairKey{from: tx.From, to: tx.To, amount: tx.Amount}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], tx)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].amount < keys[j].amount
	})

	var findings []analytics.Finding
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				gap := group[j].Timestamp.Sub(group[i].Timestamp)
				if gap >= d.config.DuplicateWindow {
					break // sorted, later entries only grow the gap
				}

				ts := group[i].Timestamp
				findings = append(findings, analytics.Finding{
					ID:       uuid.New().String(),
					Severity: analytics.SeverityHigh,
					Category: CategoryDuplicate,
					Description: fmt.Sprintf("near-duplicate transfer %s -> %s of %s repeated within %s",
						key.from, key.to, formatAmount(key.amount), gap),
					EvidenceRefs:   []string{group[i].Ref(), group[j].Ref()},
					Timestamp:      &ts,
					RelatedRecords: []any{group[i], group[j]},
				})
			}
		}
	}

	return findings, len(findings) > 0
}

// checkVelocity flags accounts issuing more transactions than the
// threshold inside any rolling window.
func (d *Detector) checkVelocity(transactions []analytics.Transaction) ([]analytics.Finding, bool) {
	byAccount := make(map[string][]analytics.Transaction)
	var accounts []string
	for _, tx := range transactions {
		if _, ok := byAccount[tx.From]; !ok {
			accounts = append(accounts, tx.From)
		}
		byAccount[tx.From] = append(byAccount[tx.From], tx)
	}
	sort.Strings(accounts)

	var findings []analytics.Finding
	for _, account := range accounts {
		txs := byAccount[account]
		if len(txs) <= d.config.VelocityThreshold {
			continue
		}

		sort.SliceStable(txs, func(i, j int) bool {
			return txs[i].Timestamp.Before(txs[j].Timestamp)
		})

		// Two-pointer scan for the densest rolling window.
		peak := 0
		peakLeft := 0
		left := 0
		for right := range txs {
			for txs[right].Timestamp.Sub(txs[left].Timestamp) >= d.config.VelocityWindow {
				left++
			}
			if count := right - left + 1; count > peak {
				peak = count
				peakLeft = left
			}
		}

		if peak <= d.config.VelocityThreshold {
			continue
		}

		ts := txs[peakLeft].Timestamp
		related := make([]any, 0, peak)
		for _, tx := range txs[peakLeft : peakLeft+peak] {
			related = append(related, tx)
		}

		findings = append(findings, analytics.Finding{
			ID:       uuid.New().String(),
			Severity: analytics.SeverityMedium,
			Category: CategoryVelocity,
			Description: fmt.Sprintf("account %s issued %d transactions within %s (threshold %d)",
				account, peak, d.config.VelocityWindow, d.config.VelocityThreshold),
			EvidenceRefs:   []string{account},
			Timestamp:      &ts,
			RelatedRecords: analytics.CapRelated(related),
		})
	}

	return findings, len(findings) > 0
}
