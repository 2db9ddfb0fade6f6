// Package self_test exercises portsched's public Port API end-to-end
// against the boundary scenarios, mirroring the style of the retrieval
// pack's own integrationtests/self suite (table-driven, testify require,
// black-box package).
package self_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quiclab/portsched"
)

// S1: WFQ divides bandwidth between two backlogged queues in proportion
// to their configured weights.
func TestWFQFairnessProportionalToWeight(t *testing.T) {
	port, err := portsched.New(&portsched.Config{
		QueueNum:     2,
		PrioQueueNum: 0,
		WFQQueueNum:  2,
		QueueWeight:  []float64{1, 3},
	}, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 40; i++ {
		require.True(t, port.Enqueue(portsched.Packet{Length: 500, Queue: 0}).Accepted)
		require.True(t, port.Enqueue(portsched.Packet{Length: 500, Queue: 1}).Accepted)
	}

	var served [2]int
	for i := 0; i < 40; i++ {
		out := port.Dequeue()
		require.True(t, out.Ok)
		served[out.Packet.Queue]++
	}

	// queue 1 carries 3x the weight of queue 0, so it should be served
	// at least twice as often across a backlogged round.
	require.GreaterOrEqual(t, served[1], 2*served[0])
}

// S2: strict priority starves a lower-priority queue under sustained
// backlog on a higher-priority one.
func TestStrictPriorityStarvesLowerQueue(t *testing.T) {
	port, err := portsched.New(&portsched.Config{
		QueueNum:     2,
		PrioQueueNum: 2,
	}, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, port.Enqueue(portsched.Packet{Length: 100, Queue: 0}).Accepted)
	}
	require.True(t, port.Enqueue(portsched.Packet{Length: 100, Queue: 1}).Accepted)

	for i := 0; i < 10; i++ {
		out := port.Dequeue()
		require.True(t, out.Ok)
		require.EqualValues(t, 0, out.Packet.Queue)
	}
	out := port.Dequeue()
	require.True(t, out.Ok)
	require.EqualValues(t, 1, out.Packet.Queue)
}

// S3: per-port ECN marking trips once aggregate port occupancy exceeds
// the configured threshold, regardless of which queue holds the bytes.
func TestPerPortMarkingTripsOnAggregateOccupancy(t *testing.T) {
	port, err := portsched.New(&portsched.Config{
		QueueNum:      2,
		PrioQueueNum:  2,
		MarkingScheme: portsched.MarkingPerPort,
		MeanPktSize:   1,
		PortThresh:    900,
	}, nil, nil)
	require.NoError(t, err)

	require.True(t, port.Enqueue(portsched.Packet{Length: 500, Queue: 0, ECT: true}).Accepted)
	require.True(t, port.Enqueue(portsched.Packet{Length: 500, Queue: 1, ECT: true}).Accepted)

	// Queue 0's packet arrived with the port at 500 bytes, under the
	// threshold; queue 1's packet brought it to 1000 bytes and was marked.
	out := port.Dequeue()
	require.True(t, out.Ok)
	require.False(t, out.Packet.CE)

	out = port.Dequeue()
	require.True(t, out.Ok)
	require.EqualValues(t, 1, out.Packet.Queue)
	require.True(t, out.Packet.CE)
}

// S4: MQ-ECN-Gen marks based on the queue's share of the estimated
// weight-sum, not on the queue's own backlog alone.
func TestMQECNGenMarksByWeightShare(t *testing.T) {
	port, err := portsched.New(&portsched.Config{
		QueueNum:      2,
		PrioQueueNum:  0,
		WFQQueueNum:   2,
		QueueWeight:   []float64{1, 1},
		MarkingScheme: portsched.MarkingMQGen,
		MeanPktSize:   1,
		QueueThresh:   []float64{1, 1},
		// MeanPktSize 1 would shrink the default shared buffer to 1000
		// bytes; size it to hold all eight 400-byte packets.
		SharedBufferBytes: 4000,
	}, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.True(t, port.Enqueue(portsched.Packet{Length: 400, Queue: 0, ECT: true}).Accepted)
		require.True(t, port.Enqueue(portsched.Packet{Length: 400, Queue: 1, ECT: true}).Accepted)
	}

	var marked bool
	for i := 0; i < 8; i++ {
		out := port.Dequeue()
		require.True(t, out.Ok)
		if out.Packet.CE {
			marked = true
		}
	}
	require.True(t, marked)
}

// S5: latency-based marking trips once a queue's head packet has waited
// longer than its target sojourn time. Driven on a manual clock: the
// configured threshold (port_thresh·K·8/C = 8ns here) must be crossed
// deterministically, not by racing wall-clock time between the Enqueue
// and Dequeue calls.
func TestLatencyMarkingTripsOnSojournTime(t *testing.T) {
	clk := portsched.NewManualClock(0)
	port, err := portsched.NewWithClock(&portsched.Config{
		QueueNum:        1,
		PrioQueueNum:    1,
		MarkingScheme:   portsched.MarkingLatency,
		PortThresh:      1,
		MeanPktSize:     1,
		LinkCapacityBPS: 1e9, // threshold = 1*1*8/1e9*1e9 = 8ns
	}, nil, nil, clk)
	require.NoError(t, err)

	require.True(t, port.Enqueue(portsched.Packet{Length: 500, Queue: 0, ECT: true}).Accepted)
	clk.Advance(1000 * time.Nanosecond)

	out := port.Dequeue()
	require.True(t, out.Ok)
	require.True(t, out.Packet.CE)
}

// S6: the token-bucket shaper defers a dequeue when tokens are
// insufficient, then succeeds exactly at the reported wake time. Driven
// on a manual clock so the wake-then-retry round trip is deterministic.
func TestShaperDefersThenSucceedsAtWakeTime(t *testing.T) {
	clk := portsched.NewManualClock(0)
	port, err := portsched.NewWithClock(&portsched.Config{
		QueueNum:         1,
		PrioQueueNum:     1,
		LinkCapacityBPS:  1e9,
		BucketDurationNS: 6000,
		BucketBytes:      750, // 6000ns at 1Gbps, below the 1500B packet's 12000ns cost
	}, nil, nil, clk)
	require.NoError(t, err)

	require.True(t, port.Enqueue(portsched.Packet{Length: 1500, Queue: 0}).Accepted)

	out := port.Dequeue()
	require.False(t, out.Ok)
	require.True(t, out.WakeSet)

	clk.Set(out.WakeAt)
	out = port.Dequeue()
	require.True(t, out.Ok)
}
