package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quiclab/portsched/internal/estimator"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
	"github.com/quiclab/portsched/internal/scheduler"
)

func drainWRR(t *testing.T, wrr *scheduler.WRR, qs []*queue.Queue, rounds int) map[protocol.QueueIndex]protocol.ByteCount {
	t.Helper()
	served := map[protocol.QueueIndex]protocol.ByteCount{}
	for i := 0; i < rounds; i++ {
		idx, ok := wrr.SelectForDequeue(0)
		if !ok {
			break
		}
		pkt, ok := qs[idx].PopFront()
		require.True(t, ok)
		wrr.OnDequeue(idx, pkt.Length, 0)
		served[idx] += pkt.Length
	}
	return served
}

func TestWRR_FairnessProportionalToQuantum(t *testing.T) {
	qs := []*queue.Queue{
		queue.New(0, 1, 1500, 0, protocol.MaxByteCount),
		queue.New(1, 1, 4500, 0, protocol.MaxByteCount),
	}
	wrr := scheduler.NewWRR(qs, 1e9, &estimator.RoundTime{Alpha: 0.9})

	const pktLen = 500
	const totalPerQueue = 3000
	for _, q := range qs {
		for i := 0; i < totalPerQueue; i++ {
			q.PushBack(protocol.Packet{Length: pktLen})
			wrr.OnEnqueue(q.Index, 0)
		}
	}

	// Serve half the total so both queues stay backlogged throughout.
	served := drainWRR(t, wrr, qs, totalPerQueue)

	ratio := float64(served[1]) / float64(served[0])
	require.InDelta(t, 3.0, ratio, 0.1, "queue 1 (quantum 4500) should get ~3x queue 0's (quantum 1500) bytes")
}

func TestWRR_QueueRemovedFromActiveListWhenDrained(t *testing.T) {
	qs := newWRRQueues(2)
	wrr := scheduler.NewWRR(qs, 1e9, &estimator.RoundTime{Alpha: 0.9})

	qs[0].PushBack(protocol.Packet{Length: 100})
	wrr.OnEnqueue(0, 0)

	idx, ok := wrr.SelectForDequeue(0)
	require.True(t, ok)
	require.Equal(t, protocol.QueueIndex(0), idx)
	pkt, _ := qs[0].PopFront()
	wrr.OnDequeue(idx, pkt.Length, 0)

	require.Zero(t, wrr.ActiveShareSum())
	_, ok = wrr.SelectForDequeue(0)
	require.False(t, ok)
}

func newWRRQueues(n int) []*queue.Queue {
	qs := make([]*queue.Queue, n)
	for i := range qs {
		qs[i] = queue.New(protocol.QueueIndex(i), 1, 1500, 0, protocol.MaxByteCount)
	}
	return qs
}
