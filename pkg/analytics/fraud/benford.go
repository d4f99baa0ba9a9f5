package fraud

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"casefile-hq/quaestor/pkg/analytics"
)

// benfordExpected is the theoretical leading-digit distribution
// P(d) = log10(1 + 1/d) for d in 1..9.
var benfordExpected = func() [10]float64 {
	var p [10]float64
	for d := 1; d <= 9; d++ {
		p[d] = math.Log10(1 + 1/float64(d))
	}
	return p
}()

// leadingDigit returns the first significant digit (1-9) of |amount|, or 0
// when the amount is zero.
func leadingDigit(amount float64) int {
	a := math.Abs(amount)
	if a == 0 {
		return 0
	}
	for a >= 10 {
		a /= 10
	}
	for a < 1 {
		a *= 10
	}
	return int(a)
}

// checkBenford compares the observed leading-digit distribution of the
// transaction amounts to Benford's Law. A digit is anomalous when its
// relative deviation from the expected frequency exceeds the configured
// threshold; the check fires when more than BenfordDigitLimit digits are
// anomalous.
func (d *Detector) checkBenford(transactions []analytics.Transaction) ([]analytics.Finding, bool) {
	var counts [10]int
	total := 0
	for _, tx := range transactions {
		digit := leadingDigit(tx.Amount)
		if digit == 0 {
			continue
		}
		counts[digit]++
		total++
	}
	if total == 0 {
		return nil, false
	}

	type deviation struct {
		digit    int
		observed float64
		relative float64
	}

	var anomalous []deviation
	for digit := 1; digit <= 9; digit++ {
		observed := float64(counts[digit]) / float64(total)
		expected := benfordExpected[digit]
		relative := math.Abs(observed-expected) / expected
		if relative > d.config.BenfordDeviation {
			anomalous = append(anomalous, deviation{digit: digit, observed: observed, relative: relative})
		}
	}

	if len(anomalous) <= d.config.BenfordDigitLimit {
		return nil, false
	}

	// Worst deviations first in the evidence list.
	sort.Slice(anomalous, func(i, j int) bool {
		return anomalous[i].relative > anomalous[j].relative
	})

	refs := make([]string, 0, len(anomalous))
	for _, dev := range anomalous {
		refs = append(refs, fmt.Sprintf("digit=%d observed=%.3f expected=%.3f deviation=%.0f%%",
			dev.digit, dev.observed, benfordExpected[dev.digit], dev.relative*100))
	}

	finding := analytics.Finding{
		ID:       uuid.New().String(),
		Severity: analytics.SeverityHigh,
		Category: CategoryBenford,
		Description: fmt.Sprintf(
			"leading-digit distribution deviates from Benford's Law on %d of 9 digits (%d amounts sampled)",
			len(anomalous), total),
		EvidenceRefs: refs,
	}

	return []analytics.Finding{finding}, true
}
