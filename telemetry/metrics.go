package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quiclab/portsched/internal/protocol"
)

// Metrics is the port's Prometheus sink: per-queue depth gauges and
// port-wide drop/mark/shaper-defer counters. Registered against a
// caller-supplied Registry rather than the global default one, following
// spec.md §9's "re-architect process-wide mutable globals as an explicit
// struct owned by the instance" design note applied to metrics as much as
// config.
type Metrics struct {
	queueDepth   *prometheus.GaugeVec
	drops        *prometheus.CounterVec
	marks        *prometheus.CounterVec
	shaperDefers prometheus.Counter
}

// NewMetrics constructs and registers a Metrics sink for portID against reg.
func NewMetrics(reg *prometheus.Registry, portID string) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "portsched",
			Name:        "queue_depth_bytes",
			Help:        "Current byte occupancy of a CoS queue.",
			ConstLabels: prometheus.Labels{"port": portID},
		}, []string{"queue"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "portsched",
			Name:        "drops_total",
			Help:        "Packets dropped by the admission controller, by reason.",
			ConstLabels: prometheus.Labels{"port": portID},
		}, []string{"reason"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "portsched",
			Name:        "ecn_marks_total",
			Help:        "Packets CE-marked, by marking scheme.",
			ConstLabels: prometheus.Labels{"port": portID},
		}, []string{"scheme"}),
		shaperDefers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "portsched",
			Name:        "shaper_defers_total",
			Help:        "Dequeue candidates deferred by the token-bucket shaper.",
			ConstLabels: prometheus.Labels{"port": portID},
		}),
	}
	reg.MustRegister(m.queueDepth, m.drops, m.marks, m.shaperDefers)
	return m
}

// SetQueueDepth updates the live gauge for q.
func (m *Metrics) SetQueueDepth(q protocol.QueueIndex, bytes protocol.ByteCount) {
	m.queueDepth.WithLabelValues(strconv.Itoa(int(q))).Set(float64(bytes))
}

// IncDrop increments the drop counter for reason.
func (m *Metrics) IncDrop(reason protocol.DropReason) {
	m.drops.WithLabelValues(reason.String()).Inc()
}

// IncMark increments the mark counter for scheme.
func (m *Metrics) IncMark(scheme string) {
	m.marks.WithLabelValues(scheme).Inc()
}

// IncShaperDefer increments the shaper-defer counter.
func (m *Metrics) IncShaperDefer() {
	m.shaperDefers.Inc()
}
