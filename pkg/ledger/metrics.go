package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for ledger operations. A nil
// *Metrics disables collection, so the ledger can run without a registry
// in tests.
type Metrics struct {
	archivals     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	accesses      prometheus.Counter
	exports       prometheus.Counter
	opDuration    *prometheus.HistogramVec
	archivedBytes prometheus.Counter
}

// NewMetrics creates ledger metrics registered with reg. If reg is nil the
// default registerer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		archivals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_ledger_archivals_total",
				Help: "Total number of archival attempts",
			},
			[]string{"result"},
		),

		verifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_ledger_verifications_total",
				Help: "Total number of integrity verifications",
			},
			[]string{"result"},
		),

		accesses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quaestor_ledger_accesses_total",
				Help: "Total number of audited evidence accesses",
			},
		),

		exports: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quaestor_ledger_exports_total",
				Help: "Total number of evidence exports",
			},
		),

		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quaestor_ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		archivedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quaestor_ledger_archived_bytes_total",
				Help: "Total plaintext bytes archived",
			},
		),
	}
}

func (m *Metrics) observeArchival(result string, size int64, d time.Duration) {
	if m == nil {
		return
	}
	m.archivals.WithLabelValues(result).Inc()
	m.opDuration.WithLabelValues("archive").Observe(d.Seconds())
	if result == "success" {
		m.archivedBytes.Add(float64(size))
	}
}

func (m *Metrics) observeVerification(valid bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "mismatch"
	}
	m.verifications.WithLabelValues(result).Inc()
	m.opDuration.WithLabelValues("verify").Observe(d.Seconds())
}

func (m *Metrics) observeAccess() {
	if m == nil {
		return
	}
	m.accesses.Inc()
}

func (m *Metrics) observeExport() {
	if m == nil {
		return
	}
	m.exports.Inc()
}
