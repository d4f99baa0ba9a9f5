package timeline

import (
	"fmt"
	"testing"
	"time"

	"casefile-hq/quaestor/pkg/analytics"
)

func event(at time.Time, label string) analytics.Event {
	return analytics.Event{Timestamp: at, Label: label}
}

func TestAnalyzer_Clusters(t *testing.T) {
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 5, OffHoursStart: 0, OffHoursEnd: 23, Location: time.UTC})

	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	events := []analytics.Event{
		event(base, "login"),
		event(base.Add(time.Second), "query"),
		event(base.Add(2*time.Second), "export"),
		event(base.Add(70*time.Second), "login"),
		event(base.Add(71*time.Second), "delete"),
	}

	clusters := a.Clusters(events)
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}
	if len(clusters[0].Events) != 3 {
		t.Errorf("Expected 3 events in first cluster, got %d", len(clusters[0].Events))
	}
	if len(clusters[1].Events) != 2 {
		t.Errorf("Expected 2 events in second cluster, got %d", len(clusters[1].Events))
	}
	if !clusters[0].Start.Equal(base) || !clusters[0].End.Equal(base.Add(2*time.Second)) {
		t.Errorf("First cluster bounds wrong: %v..%v", clusters[0].Start, clusters[0].End)
	}
}

// TestAnalyzer_ClusterGapBoundary tests that a gap equal to the threshold
// starts a new cluster.
func TestAnalyzer_ClusterGapBoundary(t *testing.T) {
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 5, OffHoursStart: 0, OffHoursEnd: 23, Location: time.UTC})

	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	events := []analytics.Event{
		event(base, "a"),
		event(base.Add(60*time.Second), "b"),
		event(base.Add(119*time.Second), "c"),
	}

	clusters := a.Clusters(events)
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters (gap == threshold splits), got %d", len(clusters))
	}
	if len(clusters[1].Events) != 2 {
		t.Errorf("Expected second cluster to absorb the 59s follow-up, got %d events", len(clusters[1].Events))
	}
}

func TestAnalyzer_UnorderedInput(t *testing.T) {
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 5, OffHoursStart: 0, OffHoursEnd: 23, Location: time.UTC})

	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	events := []analytics.Event{
		event(base.Add(71*time.Second), "late"),
		event(base, "first"),
		event(base.Add(2*time.Second), "second"),
	}

	clusters := a.Clusters(events)
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters from unordered input, got %d", len(clusters))
	}
	if clusters[0].Events[0].Label != "first" {
		t.Errorf("Expected chronological order, first event is %s", clusters[0].Events[0].Label)
	}
}

func TestAnalyzer_BurstFinding(t *testing.T) {
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 2, OffHoursStart: 0, OffHoursEnd: 23, Location: time.UTC})

	// Three well-separated events form three clusters, above the limit of 2.
	base := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	events := []analytics.Event{
		event(base, "a"),
		event(base.Add(10*time.Minute), "b"),
		event(base.Add(20*time.Minute), "c"),
	}

	result, err := a.Analyze(events)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(result.Findings))
	}
	if result.Findings[0].Category != CategoryBurst {
		t.Errorf("Expected category %s, got %s", CategoryBurst, result.Findings[0].Category)
	}
	if result.RiskScore != ScoreClusters {
		t.Errorf("Expected risk score %d, got %d", ScoreClusters, result.RiskScore)
	}
	if result.Metadata["cluster_count"] != 3 {
		t.Errorf("Expected cluster_count 3, got %v", result.Metadata["cluster_count"])
	}
	if result.Metadata["span_ms"] != int64(20*time.Minute/time.Millisecond) {
		t.Errorf("Expected span_ms %d, got %v", int64(20*time.Minute/time.Millisecond), result.Metadata["span_ms"])
	}
}

func TestAnalyzer_OffHours(t *testing.T) {
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 5, OffHoursStart: 6, OffHoursEnd: 22, Location: time.UTC})

	events := []analytics.Event{
		event(time.Date(2026, 2, 10, 3, 15, 0, 0, time.UTC), "night access"),
		event(time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC), "working hours"),
		event(time.Date(2026, 2, 10, 23, 30, 0, 0, time.UTC), "late access"),
	}

	result, err := a.Analyze(events)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("Expected 1 finding, got %d", len(result.Findings))
	}
	finding := result.Findings[0]
	if finding.Category != CategoryOffHours {
		t.Errorf("Expected category %s, got %s", CategoryOffHours, finding.Category)
	}
	if len(finding.RelatedRecords) != 2 {
		t.Errorf("Expected 2 off-hours events, got %d", len(finding.RelatedRecords))
	}
	if result.RiskScore != ScoreOffHours {
		t.Errorf("Expected risk score %d, got %d", ScoreOffHours, result.RiskScore)
	}
}

// TestAnalyzer_OffHoursBoundaries tests the inclusive working-day bounds:
// hour 6 and hour 22 are working hours, 5 and 23 are not.
func TestAnalyzer_OffHoursBoundaries(t *testing.T) {
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 5, OffHoursStart: 6, OffHoursEnd: 22, Location: time.UTC})

	cases := []struct {
		hour     int
		offHours bool
	}{
		{5, true},
		{6, false},
		{12, false},
		{22, false},
		{23, true},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("hour %02d", tc.hour), func(t *testing.T) {
			events := []analytics.Event{
				event(time.Date(2026, 2, 10, tc.hour, 30, 0, 0, time.UTC), "probe"),
			}
			result, err := a.Analyze(events)
			if err != nil {
				t.Fatalf("Analyze() failed: %v", err)
			}
			flagged := len(result.Findings) > 0
			if flagged != tc.offHours {
				t.Errorf("hour %d: off-hours = %v, want %v", tc.hour, flagged, tc.offHours)
			}
		})
	}
}

// TestAnalyzer_Timezone tests that off-hours evaluation follows the
// configured location, not UTC.
func TestAnalyzer_Timezone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	a := NewAnalyzer(&Config{ClusterGap: 60 * time.Second, ClusterLimit: 5, OffHoursStart: 6, OffHoursEnd: 22, Location: loc})

	// 18:00 UTC is 03:00 in UTC+9: off-hours locally.
	events := []analytics.Event{
		event(time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC), "utc evening"),
	}

	result, err := a.Analyze(events)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("Expected off-hours finding under UTC+9, got %d findings", len(result.Findings))
	}
}

func TestAnalyzer_InvalidInput(t *testing.T) {
	a := NewAnalyzer(nil)

	_, err := a.Analyze([]analytics.Event{{Label: "no timestamp"}})
	if err == nil {
		t.Fatal("Expected error for missing timestamp")
	}
	if !analytics.IsInvalidInput(err) {
		t.Errorf("Expected invalid-input error, got %v", err)
	}
}

func TestAnalyzer_Empty(t *testing.T) {
	a := NewAnalyzer(nil)

	result, err := a.Analyze(nil)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if result.RiskScore != 0 || len(result.Findings) != 0 {
		t.Errorf("Expected empty result, got score %d with %d findings", result.RiskScore, len(result.Findings))
	}
	if result.Metadata["cluster_count"] != 0 {
		t.Errorf("Expected cluster_count 0, got %v", result.Metadata["cluster_count"])
	}
}
