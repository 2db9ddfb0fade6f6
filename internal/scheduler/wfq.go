package scheduler

import (
	"github.com/quiclab/portsched/internal/invariant"
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// WFQ is Weighted Fair Queueing (spec.md §4.3): a virtual-time scheduler
// using the packet-by-packet GPS approximation with head-packet finish
// times. Grounded in original_source/kernel modules/sch_wfq/main.c
// (wfq_qdisc_enqueue/dequeue) and NS2/diffserv/wfq/wfq.cc.
type WFQ struct {
	queues []*queue.Queue

	virtualTime    protocol.VirtualTime
	activeWeightSum float64
}

var (
	_ Discipline       = (*WFQ)(nil)
	_ WeightSumSource  = (*WFQ)(nil)
)

// NewWFQ returns a WFQ discipline over queues. Every queue's Weight must
// be > 0; spec.md §4.3: "a queue with weight ≤ 0 is a configuration
// error; fail loudly."
func NewWFQ(queues []*queue.Queue) *WFQ {
	for _, q := range queues {
		invariant.Assert(q.Weight > 0, "wfq: queue %d has non-positive weight %v", q.Index, q.Weight)
	}
	return &WFQ{queues: queues}
}

// VirtualTime returns the scheduler's current virtual time (exported for
// tests verifying spec.md invariant 6: monotonicity within a busy period).
func (w *WFQ) VirtualTime() protocol.VirtualTime { return w.virtualTime }

// ActiveShareSum implements WeightSumSource: the exact sum of weights of
// currently non-empty queues.
func (w *WFQ) ActiveShareSum() float64 { return w.activeWeightSum }

// OnEnqueue updates head_finish_time/virtual_time only when the packet
// just pushed is the new head of a previously-empty queue (spec.md §4.3).
func (w *WFQ) OnEnqueue(idx protocol.QueueIndex, now monotime.Time) {
	q := w.queues[idx]
	if q.Len() != 1 {
		// Non-empty queue before this push: head finish time unchanged.
		return
	}
	head, ok := q.PeekHead()
	invariant.Assert(ok, "wfq: enqueue into queue %d found no head packet", idx)

	q.HeadFinishTime = w.virtualTime + protocol.VirtualTime(float64(head.Length)/q.Weight)
	w.virtualTime = q.HeadFinishTime
	w.activeWeightSum += q.Weight
}

// SelectForDequeue returns the non-empty queue with the minimum
// head_finish_time, ties broken by lowest index.
func (w *WFQ) SelectForDequeue(monotime.Time) (protocol.QueueIndex, bool) {
	minIdx := protocol.InvalidQueueIndex
	var minTime protocol.VirtualTime

	for i, q := range w.queues {
		if q.Empty() {
			continue
		}
		if minIdx == protocol.InvalidQueueIndex || q.HeadFinishTime < minTime {
			minIdx = protocol.QueueIndex(i)
			minTime = q.HeadFinishTime
		}
	}
	return minIdx, minIdx != protocol.InvalidQueueIndex
}

// OnDequeue advances the served queue's head_finish_time to the next
// packet (if any), or marks it empty (+Inf, and drops out of the active
// weight sum) otherwise.
func (w *WFQ) OnDequeue(idx protocol.QueueIndex, _ protocol.ByteCount, now monotime.Time) {
	q := w.queues[idx]
	if !q.Empty() {
		next, ok := q.PeekHead()
		invariant.Assert(ok, "wfq: queue %d reports non-empty but has no head", idx)
		q.HeadFinishTime = q.HeadFinishTime + protocol.VirtualTime(float64(next.Length)/q.Weight)
		if q.HeadFinishTime > w.virtualTime {
			w.virtualTime = q.HeadFinishTime
		}
		return
	}
	q.HeadFinishTime = protocol.PosInfVirtualTime
	w.activeWeightSum -= q.Weight
}
