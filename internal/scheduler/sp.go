package scheduler

import (
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// SP is Strict Priority (spec.md §4.2): queue 0 is highest priority,
// queue N-1 lowest; dequeue always serves the lowest-indexed non-empty
// queue. Starvation of low-priority queues under backlog is accepted
// behavior. Grounded in original_source/NS2/priority/priority.cc and
// original_source/NS2/scheduling/priority/priority.cc, both of which scan
// queues in index order with no weight or quantum state.
type SP struct {
	queues []*queue.Queue
}

var _ Discipline = (*SP)(nil)

// NewSP returns an SP discipline over queues.
func NewSP(queues []*queue.Queue) *SP {
	return &SP{queues: queues}
}

// OnEnqueue is a no-op: SP carries no per-queue scheduling state.
func (s *SP) OnEnqueue(protocol.QueueIndex, monotime.Time) {}

// SelectForDequeue returns the first non-empty queue in ascending index order.
func (s *SP) SelectForDequeue(monotime.Time) (protocol.QueueIndex, bool) {
	for i, q := range s.queues {
		if !q.Empty() {
			return protocol.QueueIndex(i), true
		}
	}
	return protocol.InvalidQueueIndex, false
}

// OnDequeue is a no-op: SP carries no per-queue scheduling state.
func (s *SP) OnDequeue(protocol.QueueIndex, protocol.ByteCount, monotime.Time) {}
