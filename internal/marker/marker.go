// Package marker implements the six ECN-marking policies of spec.md §4.6
// behind one tagged-variant interface, mirroring internal/scheduler's
// Discipline polymorphism (spec.md §9 design note: "Same for Marker").
package marker

import (
	"math"

	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// epsilon is the threshold below which a live estimate is treated as
// uninitialized, collapsing the marking threshold to the safe over-mark
// bound (spec.md §4.6: "When Ŵ < ε ... Same for round_time < ε and
// uninitialized avg_dq_rate").
const epsilon = 1e-9

// Policy marks (or declines to mark) a packet crossing a queue. Each
// policy checks the packet's ECT flag itself and never marks a non-ECT
// packet (spec.md §4.6: "Marking is gated by the packet being
// ECN-capable").
//
// The port calls OnEnqueue on every policy after the packet has been
// pushed onto its queue, and OnDequeue on every policy after the packet
// has been popped from it; the dequeue-time policies (Latency, CoDel)
// act in OnDequeue. Both return whether the CE bit should be set;
// policies that don't act at that point simply return false.
type Policy interface {
	OnEnqueue(q *queue.Queue, pkt *protocol.Packet, totalBytes protocol.ByteCount, now monotime.Time) bool
	OnDequeue(q *queue.Queue, pkt *protocol.Packet, now monotime.Time) bool
}

// Params carries the port-level configuration every policy predicate
// reads from (spec.md §4.6's table: port_thresh, K, C).
type Params struct {
	PortThresh     float64 // port_thresh, in K units
	MeanPktSize    float64 // K, mean packet size in bytes
	LinkCapacityBP float64 // C, bits/sec
}

func (p Params) bound() float64 { return p.PortThresh * p.MeanPktSize }

// PerQueue implements the Per-Queue policy: queue[q].bytes > thresh[q]·K.
// thresh[q] is read off queue.Queue.ThreshK, a threshold-in-K-units the
// same way Params.PortThresh is for Per-Port.
type PerQueue struct{ Params Params }

var _ Policy = PerQueue{}

func (m PerQueue) OnEnqueue(q *queue.Queue, pkt *protocol.Packet, _ protocol.ByteCount, _ monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	return float64(q.Bytes()) > q.ThreshK*m.Params.MeanPktSize
}

func (PerQueue) OnDequeue(*queue.Queue, *protocol.Packet, monotime.Time) bool { return false }

// PerPort implements the Per-Port policy: total_bytes > port_thresh·K.
type PerPort struct{ Params Params }

var _ Policy = PerPort{}

func (m PerPort) OnEnqueue(_ *queue.Queue, pkt *protocol.Packet, totalBytes protocol.ByteCount, _ monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	return float64(totalBytes) > m.Params.bound()
}

func (PerPort) OnDequeue(*queue.Queue, *protocol.Packet, monotime.Time) bool { return false }

// WeightSumEstimate is satisfied by the weight-sum EWMA estimator
// (internal/estimator.WeightSum) that MQ-ECN-Gen samples.
type WeightSumEstimate interface {
	Estimate() float64
}

// MQECNGen implements the MQ-ECN-Gen policy: share-proportional marking
// thresholds, spec.md §4.6: queue[q].bytes > min(share_q/Ŵ, 1)·port_thresh·K.
// share_q must be the same quantity the sampled estimator sums over: a
// WFQ/Prio+WFQ lower tier's Ŵ is a sum of weights, so share_q = q.Weight;
// a WRR/Prio+WRR lower tier's Ŵ is a sum of active quanta
// (internal/scheduler/wrr.go's activeQuantumSum), so share_q = q.Quantum.
// Mixing the two (weight over a quantum sum) collapses toward 0 and
// over-marks. ByQuantum selects which, matching the baiwei original's
// DWRR variant (original_source NS2/scheduling/prio_dwrr/prio_dwrr.cc
// ~line 221: quantum_/quantum_sum_estimate_).
type MQECNGen struct {
	Params    Params
	Estimate  WeightSumEstimate
	ByQuantum bool
}

var _ Policy = MQECNGen{}

func (m MQECNGen) share(q *queue.Queue) float64 {
	if m.ByQuantum {
		return float64(q.Quantum)
	}
	return q.Weight
}

func (m MQECNGen) OnEnqueue(q *queue.Queue, pkt *protocol.Packet, _ protocol.ByteCount, _ monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	w := m.Estimate.Estimate()
	var share float64
	if w < epsilon {
		share = 1
	} else {
		share = math.Min(m.share(q)/w, 1)
	}
	return float64(q.Bytes()) > share*m.Params.bound()
}

func (MQECNGen) OnDequeue(*queue.Queue, *protocol.Packet, monotime.Time) bool { return false }

// RoundTimeEstimate is satisfied by the round-time EWMA estimator
// (internal/estimator.RoundTime) that MQ-ECN-RR samples.
type RoundTimeEstimate interface {
	NS() float64
}

// MQECNRR implements the MQ-ECN-RR policy: round-time-proportional
// marking thresholds, spec.md §4.6: queue[q].bytes >
// min(quantum_q·8/(round_time·C), 1)·port_thresh·K.
type MQECNRR struct {
	Params    Params
	RoundTime RoundTimeEstimate
}

var _ Policy = MQECNRR{}

func (m MQECNRR) OnEnqueue(q *queue.Queue, pkt *protocol.Packet, _ protocol.ByteCount, _ monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	roundNS := m.RoundTime.NS()
	var share float64
	if roundNS < epsilon || m.Params.LinkCapacityBP <= 0 {
		share = 1
	} else {
		roundS := roundNS / 1e9
		share = math.Min(float64(q.Quantum)*8/(roundS*m.Params.LinkCapacityBP), 1)
	}
	return float64(q.Bytes()) > share*m.Params.bound()
}

func (MQECNRR) OnDequeue(*queue.Queue, *protocol.Packet, monotime.Time) bool { return false }

// Latency implements the Latency/TCN policy, applied on dequeue using the
// enqueue-time timestamp stashed by the caller: spec.md §4.6:
// (now − pkt.enq_ts) > port_thresh·K·8/C.
type Latency struct{ Params Params }

var _ Policy = Latency{}

func (Latency) OnEnqueue(_ *queue.Queue, pkt *protocol.Packet, _ protocol.ByteCount, now monotime.Time) bool {
	pkt.EnqTime = int64(now)
	return false
}

func (m Latency) OnDequeue(_ *queue.Queue, pkt *protocol.Packet, now monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	if m.Params.LinkCapacityBP <= 0 {
		return false
	}
	sojournNS := float64(now) - float64(pkt.EnqTime)
	thresholdNS := m.Params.bound() * 8 / m.Params.LinkCapacityBP * 1e9
	return sojournNS > thresholdNS
}

// DrainRateEstimate exposes the per-queue drain-rate EWMA
// (queue.Queue.AvgDQRate) that PIE-like marking samples.
type DrainRateEstimate interface {
	AvgDQRate(q *queue.Queue) float64
}

// QueueDrainRate is the trivial DrainRateEstimate reading the estimator
// state straight off the queue, since estimator.DrainRate mutates it
// in-place (see internal/estimator/drainrate.go).
type QueueDrainRate struct{}

func (QueueDrainRate) AvgDQRate(q *queue.Queue) float64 { return q.AvgDQRate }

// PIELike implements the PIE-like policy: queue[q].bytes >
// min(avg_dq_rate[q]/C, 1)·port_thresh·K.
type PIELike struct {
	Params   Params
	DrainEst DrainRateEstimate
}

var _ Policy = PIELike{}

func (m PIELike) OnEnqueue(q *queue.Queue, pkt *protocol.Packet, _ protocol.ByteCount, _ monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	rate := m.DrainEst.AvgDQRate(q)
	var share float64
	if rate < 0 || m.Params.LinkCapacityBP <= 0 {
		// Uninitialized (AvgDQRate starts at -1): safe over-mark bound.
		share = 1
	} else {
		share = math.Min(rate/m.Params.LinkCapacityBP, 1)
	}
	return float64(q.Bytes()) > share*m.Params.bound()
}

func (PIELike) OnDequeue(*queue.Queue, *protocol.Packet, monotime.Time) bool { return false }
