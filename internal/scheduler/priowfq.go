package scheduler

import (
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// PrioWFQ is the Prio+WFQ discipline (spec.md §4.5): queues [0, prioCount)
// form a strict-priority tier served ahead of everything else; queues
// [prioCount, N) are arbitrated by an inner WFQ. Grounded in
// original_source/NS2/diffserv/wfq/wfq.cc layered under a priority check,
// mirroring PrioWRR's structure for the WFQ tier.
type PrioWFQ struct {
	prioQueues []*queue.Queue
	prioCount  protocol.QueueIndex
	lower      *WFQ
}

var (
	_ Discipline      = (*PrioWFQ)(nil)
	_ WeightSumSource = (*PrioWFQ)(nil)
)

// NewPrioWFQ returns a PrioWFQ discipline. queues[:prioCount] are the
// strict-priority tier; lower must be constructed over queues[prioCount:].
func NewPrioWFQ(queues []*queue.Queue, prioCount protocol.QueueIndex, lower *WFQ) *PrioWFQ {
	return &PrioWFQ{prioQueues: queues[:prioCount], prioCount: prioCount, lower: lower}
}

// ActiveShareSum delegates to the lower WFQ tier.
func (p *PrioWFQ) ActiveShareSum() float64 { return p.lower.ActiveShareSum() }

func (p *PrioWFQ) OnEnqueue(idx protocol.QueueIndex, now monotime.Time) {
	if idx < p.prioCount {
		return
	}
	p.lower.OnEnqueue(idx-p.prioCount, now)
}

func (p *PrioWFQ) SelectForDequeue(now monotime.Time) (protocol.QueueIndex, bool) {
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

func (p *PrioWFQ) OnDequeue(idx protocol.QueueIndex, poppedLen protocol.ByteCount, now monotime.Time) {
	if idx < p.prioCount {
		return
	}
	p.lower.OnDequeue(idx-p.prioCount, poppedLen, now)
}
