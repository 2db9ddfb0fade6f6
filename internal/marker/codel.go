package marker

import (
	"time"

	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// recInvSqrtBits/recInvSqrtShift mirror the Linux kernel's CoDel fixed-point
// reciprocal square root (include/net/codel.h): rec_inv_sqrt is stored as a
// 16-bit fraction of 1.0, left-shifted into a Q0.32 value before use. No
// example repo in the retrieval pack implements CoDel; this is the
// well-known kernel construction that spec.md §9 explicitly calls out to
// "preserve in any language" rather than something grounded on a pack file.
const (
	recInvSqrtBits  = 16
	recInvSqrtShift = 32 - recInvSqrtBits
	maxRecInvSqrt   = 0xFFFF // 1/sqrt(1), the seed for count == 1
)

// Codel implements the optional CoDel marker (spec.md §4.6): a
// NotMarking/Marking state machine gated on sojourn time staying above
// Target for a full Interval, using the divide-free Newton's-method
// reciprocal square root to compute successive mark times t + interval/√count.
type Codel struct {
	Target   time.Duration
	Interval time.Duration
}

var _ Policy = Codel{}

// OnEnqueue stamps the enqueue timestamp, same contract as Latency. A
// packet arriving at a queue that had drained (it is now the only packet)
// takes the queue out of marking state.
func (Codel) OnEnqueue(q *queue.Queue, pkt *protocol.Packet, _ protocol.ByteCount, now monotime.Time) bool {
	pkt.EnqTime = int64(now)
	if q.Len() == 1 {
		q.Codel.Marking = false
	}
	return false
}

// OnDequeue runs the CoDel control law against the packet's sojourn time.
func (c Codel) OnDequeue(q *queue.Queue, pkt *protocol.Packet, now monotime.Time) bool {
	if !pkt.ECT {
		return false
	}
	st := &q.Codel
	sojourn := time.Duration(int64(now) - pkt.EnqTime)

	if sojourn < c.Target {
		st.FirstAboveTime = 0
		st.Marking = false
		return false
	}

	if st.FirstAboveTime == 0 {
		st.FirstAboveTime = now.Add(c.Interval)
	}

	if !st.Marking {
		if now.Before(st.FirstAboveTime) {
			return false
		}
		st.Marking = true
		if st.MarkNext != 0 && int64(now.Sub(st.MarkNext)) < int64(16*c.Interval) {
			// Warm start: carry forward the prior count delta (spec.md §4.6).
			if delta := st.Count - st.LastCount; delta > 1 {
				st.Count = delta
			} else {
				st.Count = 1
			}
		} else {
			st.Count = 1
		}
		st.RecInvSqrt = maxRecInvSqrt
		st.MarkNext = now
		st.LastCount = st.Count
		return true
	}

	if now.Before(st.MarkNext) {
		return false
	}
	st.Count++
	newtonStep(st)
	st.MarkNext = controlLaw(st.MarkNext, c.Interval, st.RecInvSqrt)
	st.LastCount = st.Count
	return true
}

// newtonStep performs one iteration of the Q0.32 Newton's-method reciprocal
// square root update, avoiding a hardware divide.
func newtonStep(st *queue.CodelState) {
	invsqrt := uint32(st.RecInvSqrt) << recInvSqrtShift
	invsqrt2 := uint32((uint64(invsqrt) * uint64(invsqrt)) >> 32)
	val := (uint64(3) << 32) - uint64(st.Count)*uint64(invsqrt2)
	val >>= 2
	val = (val * uint64(invsqrt)) >> (32 - 2 + 1)
	st.RecInvSqrt = uint16(val >> recInvSqrtShift)
}

// controlLaw computes t + interval/√count via the divide-free scaled
// multiply, matching codel_control_law/reciprocal_scale in the kernel.
func controlLaw(t monotime.Time, interval time.Duration, recInvSqrt uint16) monotime.Time {
	epRo := uint64(recInvSqrt) << recInvSqrtShift
	scaled := (uint64(interval) * epRo) >> 32
	return t.Add(time.Duration(scaled))
}
