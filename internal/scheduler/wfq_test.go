package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
	"github.com/quiclab/portsched/internal/scheduler"
)

func drainWFQ(t *testing.T, wfq *scheduler.WFQ, qs []*queue.Queue, rounds int) map[protocol.QueueIndex]protocol.ByteCount {
	t.Helper()
	served := map[protocol.QueueIndex]protocol.ByteCount{}
	for i := 0; i < rounds; i++ {
		idx, ok := wfq.SelectForDequeue(0)
		if !ok {
			break
		}
		pkt, ok := qs[idx].PopFront()
		require.True(t, ok)
		wfq.OnDequeue(idx, pkt.Length, 0)
		served[idx] += pkt.Length
	}
	return served
}

// S1: two backlogged queues with weights 1:3 split link bandwidth 1:3 over
// a long busy period (spec.md §8 scenario S1).
func TestWFQ_FairnessProportionalToWeight(t *testing.T) {
	qs := []*queue.Queue{
		queue.New(0, 1, 0, 0, protocol.MaxByteCount),
		queue.New(1, 3, 0, 0, protocol.MaxByteCount),
	}
	wfq := scheduler.NewWFQ(qs)

	const pktLen = 1000
	const totalPerQueue = 2000
	for _, q := range qs {
		for i := 0; i < totalPerQueue; i++ {
			q.PushBack(protocol.Packet{Length: pktLen})
			wfq.OnEnqueue(q.Index, 0)
		}
	}

	// Serve half the total so both queues stay backlogged throughout.
	served := drainWFQ(t, wfq, qs, totalPerQueue)

	ratio := float64(served[1]) / float64(served[0])
	require.InDelta(t, 3.0, ratio, 0.05, "queue 1 (weight 3) should get ~3x queue 0's (weight 1) bytes")
}

func TestWFQ_EmptyQueueHasInfiniteFinishTime(t *testing.T) {
	qs := newQueues(1)
	wfq := scheduler.NewWFQ(qs)
	require.Equal(t, protocol.PosInfVirtualTime, qs[0].HeadFinishTime)

	_, ok := wfq.SelectForDequeue(0)
	require.False(t, ok)
}

func TestWFQ_VirtualTimeMonotone(t *testing.T) {
	qs := newQueues(2)
	wfq := scheduler.NewWFQ(qs)

	qs[0].PushBack(protocol.Packet{Length: 500})
	wfq.OnEnqueue(0, 0)
	v1 := wfq.VirtualTime()

	qs[1].PushBack(protocol.Packet{Length: 500})
	wfq.OnEnqueue(1, 0)
	v2 := wfq.VirtualTime()

	require.GreaterOrEqual(t, float64(v2), float64(v1))
}
