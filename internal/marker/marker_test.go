package marker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quiclab/portsched/internal/marker"
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

func newMarkerQueue(weight float64, quantum, bufferLimit protocol.ByteCount) *queue.Queue {
	return queue.New(0, weight, quantum, 0, bufferLimit)
}

// S3: port_thresh=10, K=1000, fill 11KB total, send an ECT 1KB packet: CE set.
func TestPerPort_S3(t *testing.T) {
	q := newMarkerQueue(1, 1500, protocol.MaxByteCount)
	p := marker.PerPort{Params: marker.Params{PortThresh: 10, MeanPktSize: 1000}}

	pkt := protocol.Packet{Length: 1000, ECT: true}
	marked := p.OnEnqueue(q, &pkt, 11000, 0)
	require.True(t, marked)

	pkt2 := protocol.Packet{Length: 1000, ECT: true}
	marked2 := p.OnEnqueue(q, &pkt2, 9000, 0)
	require.False(t, marked2)
}

func TestPerPort_NonECTNeverMarked(t *testing.T) {
	q := newMarkerQueue(1, 1500, protocol.MaxByteCount)
	p := marker.PerPort{Params: marker.Params{PortThresh: 10, MeanPktSize: 1000}}
	pkt := protocol.Packet{Length: 1000, ECT: false}
	require.False(t, p.OnEnqueue(q, &pkt, 1_000_000, 0))
}

type fixedWeightSum float64

func (f fixedWeightSum) Estimate() float64 { return float64(f) }

// S4: two queues weights 1 and 9, port_thresh=10; 2KB backlog marks queue
// 0 (threshold ≈ 1·K) but not queue 1 (threshold ≈ 9·K).
func TestMQECNGen_S4(t *testing.T) {
	params := marker.Params{PortThresh: 10, MeanPktSize: 1000}
	w := fixedWeightSum(10) // Ŵ = w0 + w1 = 1 + 9

	q0 := newMarkerQueue(1, 1500, protocol.MaxByteCount)
	q0.PushBack(protocol.Packet{Length: 2000})
	m0 := marker.MQECNGen{Params: params, Estimate: w}
	pkt0 := protocol.Packet{Length: 2000, ECT: true}
	require.True(t, m0.OnEnqueue(q0, &pkt0, 0, 0), "queue 0 (weight 1, threshold ~1K) should mark at 2KB backlog")

	q1 := newMarkerQueue(9, 1500, protocol.MaxByteCount)
	q1.PushBack(protocol.Packet{Length: 2000})
	m1 := marker.MQECNGen{Params: params, Estimate: w}
	pkt1 := protocol.Packet{Length: 2000, ECT: true}
	require.False(t, m1.OnEnqueue(q1, &pkt1, 0, 0), "queue 1 (weight 9, threshold ~9K) should not mark at 2KB backlog")
}

// ByQuantum pairs MQ-ECN-Gen with a WRR lower tier, whose weight-sum
// estimator samples the active quantum sum, not the active weight sum
// (internal/scheduler/wrr.go's activeQuantumSum). The share numerator
// must track quanta too, or it collapses toward 0 and over-marks.
func TestMQECNGen_ByQuantumUsesQuantumNotWeight(t *testing.T) {
	params := marker.Params{PortThresh: 10, MeanPktSize: 1000}
	w := fixedWeightSum(1000) // Ŵ = quantum0 + quantum1 = 100 + 900

	q0 := newMarkerQueue(1, 100, protocol.MaxByteCount)
	q0.PushBack(protocol.Packet{Length: 2000})
	m0 := marker.MQECNGen{Params: params, Estimate: w, ByQuantum: true}
	pkt0 := protocol.Packet{Length: 2000, ECT: true}
	require.True(t, m0.OnEnqueue(q0, &pkt0, 0, 0), "quantum 100 of 1000 (threshold ~1K) should mark at 2KB backlog")

	q1 := newMarkerQueue(1, 900, protocol.MaxByteCount)
	q1.PushBack(protocol.Packet{Length: 2000})
	m1 := marker.MQECNGen{Params: params, Estimate: w, ByQuantum: true}
	pkt1 := protocol.Packet{Length: 2000, ECT: true}
	require.False(t, m1.OnEnqueue(q1, &pkt1, 0, 0), "quantum 900 of 1000 (threshold ~9K) should not mark at 2KB backlog")

	// Both queues have equal weight; had share stayed weight-based
	// despite ByQuantum, both would see the same (over-marking) share.
	require.Equal(t, q0.Weight, q1.Weight)
}

func TestMQECNGen_CollapsesWhenEstimateNearZero(t *testing.T) {
	params := marker.Params{PortThresh: 10, MeanPktSize: 1000}
	q := newMarkerQueue(1, 1500, protocol.MaxByteCount)
	q.PushBack(protocol.Packet{Length: 5000})
	m := marker.MQECNGen{Params: params, Estimate: fixedWeightSum(0)}
	pkt := protocol.Packet{Length: 5000, ECT: true}
	// Collapses to port_thresh*K = 10000; 5000 bytes shouldn't mark.
	require.False(t, m.OnEnqueue(q, &pkt, 0, 0))
}

// S5: port_thresh*K*8/C = 1ms. Sojourn 2ms marks; sojourn 0.5ms doesn't.
func TestLatency_S5(t *testing.T) {
	// port_thresh*K*8/C = 1ms => with PortThresh*MeanPktSize=1000 bytes,
	// C = 1000*8/0.001s = 8_000_000 bps.
	params := marker.Params{PortThresh: 1, MeanPktSize: 1000, LinkCapacityBP: 8_000_000}
	l := marker.Latency{Params: params}
	q := newMarkerQueue(1, 1500, protocol.MaxByteCount)

	pkt := protocol.Packet{ECT: true}
	l.OnEnqueue(q, &pkt, 0, 0)
	require.True(t, l.OnDequeue(q, &pkt, monotime.Time(2_000_000)), "2ms sojourn should mark")

	pkt2 := protocol.Packet{ECT: true}
	l.OnEnqueue(q, &pkt2, 0, 0)
	require.False(t, l.OnDequeue(q, &pkt2, monotime.Time(500_000)), "0.5ms sojourn should not mark")
}
