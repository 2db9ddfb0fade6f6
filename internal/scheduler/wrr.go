package scheduler

import (
	"time"

	"github.com/quiclab/portsched/internal/estimator"
	"github.com/quiclab/portsched/internal/invariant"
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// WRR is Deficit Weighted Round Robin (spec.md §4.4): an active list of
// non-empty queues visited in FIFO rotation, each credited its quantum on
// becoming current, serving head packets while they fit the accumulated
// deficit. Grounded in original_source/kernel modules/sch_dwrr/main.c's
// dwrr_qdisc_dequeue while(1) loop and NS2/scheduling/prio_dwrr/prio_dwrr.cc.
type WRR struct {
	queues []*queue.Queue

	// activeList holds indices of non-empty queues in round-robin visit
	// order; the head of the list is the next queue to be credited/served.
	activeList []protocol.QueueIndex

	activeQuantumSum protocol.ByteCount

	LinkCapacityBP float64 // bits/sec, for round-time sample conversion
	RoundTime      *estimator.RoundTime
}

var (
	_ Discipline      = (*WRR)(nil)
	_ WeightSumSource = (*WRR)(nil)
)

// NewWRR returns a WRR discipline over queues. Every queue's Quantum must
// be > 0; spec.md §4.4: "a queue with quantum ≤ 0 is a configuration
// error; fail loudly."
func NewWRR(queues []*queue.Queue, linkCapacityBP float64, roundTime *estimator.RoundTime) *WRR {
	for _, q := range queues {
		invariant.Assert(q.Quantum > 0, "wrr: queue %d has non-positive quantum %v", q.Index, q.Quantum)
	}
	return &WRR{queues: queues, LinkCapacityBP: linkCapacityBP, RoundTime: roundTime}
}

// ActiveShareSum implements WeightSumSource: the exact sum of quanta of
// currently active (non-empty) queues.
func (w *WRR) ActiveShareSum() float64 { return float64(w.activeQuantumSum) }

// OnEnqueue adds idx to the tail of the active list when the packet just
// pushed is the new head of a previously-empty queue.
func (w *WRR) OnEnqueue(idx protocol.QueueIndex, now monotime.Time) {
	q := w.queues[idx]
	if q.Len() != 1 {
		return
	}
	q.Active = true
	q.RoundStart = now
	w.activeList = append(w.activeList, idx)
	w.activeQuantumSum += q.Quantum
}

// SelectForDequeue implements the kernel's credit-then-serve-or-rotate
// loop: the list head is credited its quantum on becoming current, then
// served if its head packet fits the accumulated deficit, else rotated to
// the tail and the next candidate is tried.
func (w *WRR) SelectForDequeue(now monotime.Time) (protocol.QueueIndex, bool) {
	for len(w.activeList) > 0 {
		idx := w.activeList[0]
		q := w.queues[idx]

		if q.Empty() {
			// Defensive: should already have been removed in OnDequeue.
			w.activeList = w.activeList[1:]
			continue
		}

		if !q.Current {
			q.Current = true
			q.Deficit += q.Quantum
			q.RoundStart = now
		}

		head, ok := q.PeekHead()
		invariant.Assert(ok, "wrr: queue %d reports non-empty but has no head", idx)

		if head.Length <= q.Deficit {
			return idx, true
		}

		// Doesn't fit this round: rotate to the tail and sample round time.
		q.Current = false
		w.sampleRound(q, now)
		w.activeList = append(w.activeList[1:], idx)
	}
	return protocol.InvalidQueueIndex, false
}

// OnDequeue debits the deficit by the served packet's length and, if the
// queue has drained, removes it from the active list and records a final
// round-time sample.
func (w *WRR) OnDequeue(idx protocol.QueueIndex, poppedLen protocol.ByteCount, now monotime.Time) {
	q := w.queues[idx]
	q.Deficit -= poppedLen
	q.LastPktTime = now
	q.LastPktLenDur = w.transmissionNS(poppedLen)

	if !q.Empty() {
		return
	}

	w.sampleRound(q, now)
	q.Deficit = 0
	q.Active = false
	q.Current = false
	w.activeQuantumSum -= q.Quantum

	for i, qi := range w.activeList {
		if qi == idx {
			w.activeList = append(w.activeList[:i], w.activeList[i+1:]...)
			break
		}
	}
}

// sampleRound feeds a round-boundary sample into the round-time EWMA: the
// time since the queue became current, floored at its last packet's
// transmission time (a round can't complete faster than it takes to send
// one packet).
func (w *WRR) sampleRound(q *queue.Queue, now monotime.Time) {
	if w.RoundTime == nil {
		return
	}
	sample := now.Sub(q.RoundStart)
	if floor := time.Duration(q.LastPktLenDur); floor > sample {
		sample = floor
	}
	w.RoundTime.OnRoundBoundary(float64(sample.Nanoseconds()))
}

func (w *WRR) transmissionNS(bytes protocol.ByteCount) int64 {
	if w.LinkCapacityBP <= 0 {
		return 0
	}
	return int64(float64(bytes) * 8 / w.LinkCapacityBP * 1e9)
}
