package estimator

import (
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// DrainRate implements the per-queue drain-rate estimator (spec.md §4.7),
// feeding PIE-like marking. State lives on the queue itself
// (queue.Queue.DQTstamp/DQCount/AvgDQRate) so it survives across calls and
// resets correctly when a queue empties; this type only holds the
// estimator's configuration.
//
// Grounded in original_source/NS2/scheduling/prio_dwrr/prio_dwrr.cc's
// dq_count / dq_tstamp / avg_dq_rate handling (e.g. lines ~516-561), which
// itself borrows the "drain rate" idea from Linux's CoDel/FQ-CoDel
// dq_count machinery.
type DrainRate struct {
	Beta           float64 // EWMA gain (estimate_rate_alpha_)
	DQThreshBytes  protocol.ByteCount
	LinkCapacityBP float64 // bits/sec
}

// OnDequeue updates q's drain-rate state after a packet of pktBytes has
// just been dequeued from it, at time now. It must be called exactly once
// per dequeued packet, after the queue's byte occupancy has already been
// decremented (bytes is q.Bytes() post-pop) — matching the original
// source's accounting, where byteLength() is checked after the skb is
// removed from the child qdisc.
//
// The window-rollover timestamp subtracts one packet's transmission time
// from the next window's start (dq_tstamp = now + pktBytes*8/C), per
// spec.md §9 open question (b); this is preserved bit-for-bit so the
// PIE-like predicate reproduces the original exactly.
func (d *DrainRate) OnDequeue(q *queue.Queue, pktBytes protocol.ByteCount, now monotime.Time) {
	bytes := q.Bytes()

	if bytes < d.DQThreshBytes {
		q.DQCount = queue.DQCountInvalid
		return
	}

	if q.DQCount == queue.DQCountInvalid {
		q.DQTstamp = now
		q.DQCount = 0
		return
	}

	q.DQCount += pktBytes
	if q.DQCount < d.DQThreshBytes {
		return
	}

	txNS := d.transmissionNS(pktBytes)
	intervalNS := float64(now.Sub(q.DQTstamp).Nanoseconds()) + txNS
	if intervalNS <= 0 {
		return
	}
	rate := float64(q.DQCount) * 8 / (intervalNS / 1e9)

	if q.AvgDQRate < 0 {
		q.AvgDQRate = rate
	} else {
		q.AvgDQRate = q.AvgDQRate*d.Beta + rate*(1-d.Beta)
	}

	if q.Bytes() < d.DQThreshBytes {
		q.DQCount = queue.DQCountInvalid
	} else {
		q.DQCount = 0
		q.DQTstamp = now.Add(durationFromNS(txNS))
	}
}

func (d *DrainRate) transmissionNS(bytes protocol.ByteCount) float64 {
	if d.LinkCapacityBP <= 0 {
		return 0
	}
	return float64(bytes) * 8 / d.LinkCapacityBP * 1e9
}
