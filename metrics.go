package durationz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the capture path does. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	IntervalsRecorded prometheus.Counter
	DuplicateEnds     prometheus.Counter
	OpenSpans         prometheus.Gauge
	OffloadDropped    prometheus.Counter
}

// NewMetrics creates the capture metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IntervalsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "durationz_intervals_recorded_total",
			Help: "Total active intervals handed to the sink.",
		}),
		DuplicateEnds: factory.NewCounter(prometheus.CounterOpts{
			Name: "durationz_duplicate_active_end_total",
			Help: "Active-end notifications without a pending interval.",
		}),
		OpenSpans: factory.NewGauge(prometheus.GaugeOpts{
			Name: "durationz_open_spans",
			Help: "Spans currently open.",
		}),
		OffloadDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "durationz_offload_dropped_total",
			Help: "Offloaded functions abandoned before reaching a worker.",
		}),
	}
}

func (m *Metrics) intervalRecorded() {
	if m != nil {
		m.IntervalsRecorded.Inc()
	}
}

func (m *Metrics) duplicateEnd() {
	if m != nil {
		m.DuplicateEnds.Inc()
	}
}

func (m *Metrics) spanOpened() {
	if m != nil {
		m.OpenSpans.Inc()
	}
}

func (m *Metrics) spanClosed() {
	if m != nil {
		m.OpenSpans.Dec()
	}
}

func (m *Metrics) offloadDropped() {
	if m != nil {
		m.OffloadDropped.Inc()
	}
}
