// Package scheduler implements the four scheduling disciplines of
// spec.md §4.2-§4.5 behind one common interface, per the "Discipline
// polymorphism" design note (spec.md §9): one tagged variant instead of
// the teacher-domain's per-variant duplication
// (NS2/scheduling/{priority,prio_dwrr,prio_wfq} in original_source all
// duplicate a scheduler file per variant; the Go port collapses them).
package scheduler

import (
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
)

// Discipline arbitrates among a port's CoS queues. Implementations own no
// queue storage themselves — they're constructed over a shared
// []*queue.Queue slice owned by the port — but may hold their own
// scheduling-specific bookkeeping (WFQ virtual time, WRR's active list).
type Discipline interface {
	// OnEnqueue is called immediately after a packet has been pushed onto
	// queues[idx] (byte/packet accounting already applied).
	OnEnqueue(idx protocol.QueueIndex, now monotime.Time)

	// SelectForDequeue picks the queue whose head packet should be served
	// next. It may itself perform discipline-internal bookkeeping (WRR's
	// deficit-round rotation), but it never mutates queue occupancy.
	// ok is false only when no queue managed by this discipline is
	// eligible right now (e.g. the queue is completely empty).
	SelectForDequeue(now monotime.Time) (protocol.QueueIndex, bool)

	// OnDequeue is called immediately after the head packet of
	// queues[idx] (of length poppedLen) has been popped.
	OnDequeue(idx protocol.QueueIndex, poppedLen protocol.ByteCount, now monotime.Time)
}

// WeightSumSource is implemented by disciplines that maintain an exact,
// live sum of active weights/quanta for the MQ-ECN-Gen marker (spec.md
// §4.6, §4.7) to sample into its EWMA.
type WeightSumSource interface {
	ActiveShareSum() float64
}
