package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the ingestion pipeline. A nil
// *Metrics disables collection.
type Metrics struct {
	items      *prometheus.CounterVec
	bytesRead  prometheus.Counter
	queueDepth prometheus.Gauge
	duplicates prometheus.Counter
}

// NewMetrics creates ingestion metrics registered with reg. If reg is nil
// the default registerer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quaestor_ingest_items_total",
				Help: "Total number of ingestion items by outcome",
			},
			[]string{"outcome"},
		),

		bytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quaestor_ingest_bytes_read_total",
				Help: "Total artifact bytes read by the ingestion pipeline",
			},
		),

		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quaestor_ingest_queue_depth",
				Help: "Number of items currently pending or in flight",
			},
		),

		duplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quaestor_ingest_duplicates_total",
				Help: "Total number of artifacts tagged as duplicates",
			},
		),
	}
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addBytes(n int64) {
	if m == nil {
		return
	}
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) observeDuplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}
