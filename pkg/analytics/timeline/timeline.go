// Package timeline reconstructs event timelines: stable chronological
// ordering, greedy gap-based clustering, and off-hours activity detection.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"casefile-hq/quaestor/pkg/analytics"
)

// Risk score contributions.
const (
	ScoreClusters = 20
	ScoreOffHours = 15
)

// Finding categories produced by this package.
const (
	CategoryBurst    = "activity-burst"
	CategoryOffHours = "off-hours-activity"
)

// offHoursSample caps the evidence sample on an off-hours finding.
const offHoursSample = 10

// Config contains the timeline analysis thresholds.
type Config struct {
	// ClusterGap is the maximum gap between consecutive events within one
	// cluster.
	// Default: 60 seconds
	ClusterGap time.Duration

	// ClusterLimit is the cluster count that must be exceeded for the
	// burst finding to fire.
	// Default: 5
	ClusterLimit int

	// OffHoursStart and OffHoursEnd bound the working day: events with a
	// local hour < OffHoursStart or > OffHoursEnd are off-hours.
	// Defaults: 6 and 22
	OffHoursStart int
	OffHoursEnd   int

	// Location is the timezone used to evaluate local hours.
	// Default: time.Local
	Location *time.Location
}

// DefaultConfig returns the default timeline thresholds.
func DefaultConfig() *Config {
	return &Config{
		ClusterGap:    60 * time.Second,
		ClusterLimit:  5,
		OffHoursStart: 6,
		OffHoursEnd:   22,
		Location:      time.Local,
	}
}

// Cluster is a run of events whose consecutive gaps stay below the
// configured threshold.
type Cluster struct {
	Start  time.Time         `json:"start"`
	End    time.Time         `json:"end"`
	Events []analytics.Event `json:"events"`
}

// Analyzer is the stateless timeline analyzer.
type Analyzer struct {
	config *Config
}

// NewAnalyzer creates a timeline analyzer.
func NewAnalyzer(config *Config) *Analyzer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Analyzer{config: config}
}

// Analyze sorts the events chronologically (stable: ties keep their
// original relative order), clusters them, and flags off-hours activity.
// Events missing a timestamp are rejected with an InvalidInputError.
func (a *Analyzer) Analyze(events []analytics.Event) (*analytics.Result, error) {
	for i, event := range events {
		if event.Timestamp.IsZero() {
			return nil, analytics.NewInvalidInputError(i, "timestamp", "missing timestamp")
		}
	}

	sorted := append([]analytics.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	clusters := a.cluster(sorted)

	result := &analytics.Result{
		Kind:        analytics.KindTimeline,
		GeneratedAt: time.Now(),
		Metadata: map[string]any{
			"event_count":   len(sorted),
			"cluster_count": len(clusters),
			"span_ms":       spanMillis(sorted),
		},
	}

	score := 0

	if len(clusters) > a.config.ClusterLimit {
		score += ScoreClusters
		refs := make([]string, 0, len(clusters))
		for _, c := range clusters {
			refs = append(refs, fmt.Sprintf("%s..%s (%d events)",
				c.Start.UTC().Format(time.RFC3339), c.End.UTC().Format(time.RFC3339), len(c.Events)))
		}
		result.Findings = append(result.Findings, analytics.Finding{
			ID:       uuid.New().String(),
			Severity: analytics.SeverityMedium,
			Category: CategoryBurst,
			Description: fmt.Sprintf("activity fragments into %d bursts (threshold %d); scattered bursts can indicate scripted access",
				len(clusters), a.config.ClusterLimit),
			EvidenceRefs: refs,
		})
	}

	if offHours := a.offHours(sorted); len(offHours) > 0 {
		score += ScoreOffHours

		sample := offHours
		if len(sample) > offHoursSample {
			sample = sample[:offHoursSample]
		}
		refs := make([]string, 0, len(sample))
		related := make([]any, 0, len(sample))
		for _, event := range sample {
			refs = append(refs, event.Timestamp.In(a.config.Location).Format(time.RFC3339))
			related = append(related, event)
		}

		ts := offHours[0].Timestamp
		result.Findings = append(result.Findings, analytics.Finding{
			ID:       uuid.New().String(),
			Severity: analytics.SeverityMedium,
			Category: CategoryOffHours,
			Description: fmt.Sprintf("%d events occurred outside working hours (before %02d:00 or after %02d:59)",
				len(offHours), a.config.OffHoursStart, a.config.OffHoursEnd),
			EvidenceRefs:   refs,
			Timestamp:      &ts,
			RelatedRecords: related,
		})
	}

	result.RiskScore = analytics.ClampScore(score)
	if len(result.Findings) > 0 {
		result.Recommendations = []string{
			"Correlate the highlighted periods with access logs and on-call rosters.",
		}
	}

	return result, nil
}

// Clusters returns the clustered timeline without scoring, for callers
// that only need the reconstruction.
func (a *Analyzer) Clusters(events []analytics.Event) []Cluster {
	sorted := append([]analytics.Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return a.cluster(sorted)
}

// cluster runs the greedy single pass: extend the current cluster while
// the gap to the next event stays below the threshold, otherwise close it
// and start a new one.
func (a *Analyzer) cluster(sorted []analytics.Event) []Cluster {
	if len(sorted) == 0 {
		return nil
	}

	var clusters []Cluster
	current := Cluster{
		Start:  sorted[0].Timestamp,
		End:    sorted[0].Timestamp,
		Events: []analytics.Event{sorted[0]},
	}

	for _, event := range sorted[1:] {
		if event.Timestamp.Sub(current.End) < a.config.ClusterGap {
			current.Events = append(current.Events, event)
			current.End = event.Timestamp
			continue
		}
		clusters = append(clusters, current)
		current = Cluster{
			Start:  event.Timestamp,
			End:    event.Timestamp,
			Events: []analytics.Event{event},
		}
	}

	return append(clusters, current)
}

// offHours returns events whose local hour falls outside working hours.
func (a *Analyzer) offHours(events []analytics.Event) []analytics.Event {
	var flagged []analytics.Event
	for _, event := range events {
		hour := event.Timestamp.In(a.config.Location).Hour()
		if hour < a.config.OffHoursStart || hour > a.config.OffHoursEnd {
			flagged = append(flagged, event)
		}
	}
	return flagged
}

func spanMillis(sorted []analytics.Event) int64 {
	if len(sorted) < 2 {
		return 0
	}
	return sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Milliseconds()
}
