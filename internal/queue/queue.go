// Package queue implements the fixed-size array of per-CoS FIFO byte
// queues described in spec.md §3, including the scheduling-discipline
// state (WFQ head_finish_time, WRR deficit/active/current) and the
// per-queue drain-rate estimator state that live alongside each queue.
package queue

import (
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
)

// DQCountInvalid is the drain-rate estimator's "not measuring" sentinel.
const DQCountInvalid protocol.ByteCount = -1

// Queue is one Class-of-Service FIFO queue plus the scheduling and
// marking state the disciplines in internal/scheduler and the policies in
// internal/marker attach to it. Configured fields (Index, Weight,
// Quantum, ThreshK, BufferLimit) are set once at port init and never
// mutated by the data path, per spec.md §3's Lifecycle note.
type Queue struct {
	Index       protocol.QueueIndex
	Weight      float64            // WFQ weight, > 0
	Quantum     protocol.ByteCount // WRR quantum, > 0
	ThreshK     float64            // per-queue ECN marking threshold, in K (mean-packet-size) units
	BufferLimit protocol.ByteCount // static-mode per-queue buffer budget; protocol.MaxByteCount if unused

	pkts []protocol.Packet
	head int
	bytes protocol.ByteCount

	// WFQ state (spec.md §4.3). +Inf iff the queue is empty.
	HeadFinishTime protocol.VirtualTime

	// WRR/DWRR state (spec.md §4.4).
	Deficit       protocol.ByteCount
	Active        bool
	Current       bool
	RoundStart    monotime.Time
	LastPktTime   monotime.Time
	LastPktLenDur int64 // last packet's transmission time, in ns, for round-time sampling

	// Per-queue drain-rate estimator state (spec.md §4.7).
	DQTstamp  monotime.Time
	DQCount   protocol.ByteCount // DQCountInvalid while not measuring
	AvgDQRate float64            // bits/sec EWMA; -1 while uninitialized

	// CoDel marker state (spec.md §4.6), opaque to the scheduler.
	Codel CodelState
}

// CodelState is the per-queue state machine CoDel marking needs. It lives
// on the queue (not the marker) because marking state must survive across
// dequeues of the same queue and must reset when the queue drains, per the
// kernel source's dwrr_qdisc_enqueue: "CoDel leaves marking state when the
// queue is empty".
type CodelState struct {
	Count          uint32
	LastCount      uint32
	Marking        bool
	RecInvSqrt     uint16
	FirstAboveTime monotime.Time
	MarkNext       monotime.Time
}

// New returns an empty, initialized Queue. HeadFinishTime starts at +Inf
// per invariant 4 (empty ⇒ +Inf), DQCount starts invalid, AvgDQRate starts
// uninitialized.
func New(idx protocol.QueueIndex, weight float64, quantum protocol.ByteCount, threshK float64, bufferLimit protocol.ByteCount) *Queue {
	return &Queue{
		Index:          idx,
		Weight:         weight,
		Quantum:        quantum,
		ThreshK:        threshK,
		BufferLimit:    bufferLimit,
		HeadFinishTime: protocol.PosInfVirtualTime,
		DQCount:        DQCountInvalid,
		AvgDQRate:      -1,
	}
}

// Len returns the number of packets currently queued.
func (q *Queue) Len() int { return len(q.pkts) - q.head }

// Bytes returns the current byte occupancy.
func (q *Queue) Bytes() protocol.ByteCount { return q.bytes }

// Empty reports whether the queue holds no packets.
func (q *Queue) Empty() bool { return q.Len() == 0 }

// PeekHead returns the head packet without removing it.
func (q *Queue) PeekHead() (*protocol.Packet, bool) {
	if q.Empty() {
		return nil, false
	}
	return &q.pkts[q.head], true
}

// PushBack appends pkt to the tail of the FIFO and updates byte occupancy.
func (q *Queue) PushBack(pkt protocol.Packet) {
	q.pkts = append(q.pkts, pkt)
	q.bytes += pkt.Length
}

// PeekTail returns a pointer to the most recently pushed packet, so
// enqueue-time ECN marking (evaluated after byte accounting, but applied
// to the packet that just arrived rather than the head) can set its CE
// bit in place.
func (q *Queue) PeekTail() (*protocol.Packet, bool) {
	if q.Empty() {
		return nil, false
	}
	return &q.pkts[len(q.pkts)-1], true
}

// PopFront removes and returns the head packet.
func (q *Queue) PopFront() (protocol.Packet, bool) {
	if q.Empty() {
		return protocol.Packet{}, false
	}
	pkt := q.pkts[q.head]
	q.pkts[q.head] = protocol.Packet{}
	q.head++
	q.bytes -= pkt.Length

	// Compact once the consumed prefix dominates, so a long-lived queue
	// doesn't retain an ever-growing backing array.
	if q.head > 64 && q.head*2 > len(q.pkts) {
		remaining := len(q.pkts) - q.head
		copy(q.pkts, q.pkts[q.head:])
		q.pkts = q.pkts[:remaining]
		q.head = 0
	}
	return pkt, true
}
