package scheduler

import (
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// PrioWRR is the Prio+WRR discipline (spec.md §4.5): queues [0, prioCount)
// form a strict-priority tier served ahead of everything else; queues
// [prioCount, N) are arbitrated by an inner WRR. Grounded in
// original_source/NS2/scheduling/prio_dwrr/prio_dwrr.cc, which layers a
// single strict-priority queue over a DWRR tier.
type PrioWRR struct {
	prioQueues []*queue.Queue
	prioCount  protocol.QueueIndex
	lower      *WRR
}

var (
	_ Discipline      = (*PrioWRR)(nil)
	_ WeightSumSource = (*PrioWRR)(nil)
)

// NewPrioWRR returns a PrioWRR discipline. queues[:prioCount] are the
// strict-priority tier; lower must be constructed over queues[prioCount:].
func NewPrioWRR(queues []*queue.Queue, prioCount protocol.QueueIndex, lower *WRR) *PrioWRR {
	return &PrioWRR{prioQueues: queues[:prioCount], prioCount: prioCount, lower: lower}
}

// ActiveShareSum delegates to the lower WRR tier: the priority tier has no
// weight/quantum notion to contribute to MQ-ECN's active-share sum.
func (p *PrioWRR) ActiveShareSum() float64 { return p.lower.ActiveShareSum() }

func (p *PrioWRR) OnEnqueue(idx protocol.QueueIndex, now monotime.Time) {
	if idx < p.prioCount {
		return
	}
	p.lower.OnEnqueue(idx-p.prioCount, now)
}

func (p *PrioWRR) SelectForDequeue(now monotime.Time) (protocol.QueueIndex, bool) {
	for i, q := range p.prioQueues {
		if !q.Empty() {
			return protocol.QueueIndex(i), true
		}
	}
	idx, ok := p.lower.SelectForDequeue(now)
	if !ok {
		return protocol.InvalidQueueIndex, false
	}
	return idx + p.prioCount, true
}

func (p *PrioWRR) OnDequeue(idx protocol.QueueIndex, poppedLen protocol.ByteCount, now monotime.Time) {
	if idx < p.prioCount {
		return
	}
	p.lower.OnDequeue(idx-p.prioCount, poppedLen, now)
}
