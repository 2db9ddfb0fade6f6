package portsched

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quiclab/portsched/internal/clock"
	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/telemetrymock"
)

func newTestPort(t *testing.T, cfg *Config, clk clock.Clock) *Port {
	t.Helper()
	p, err := newPort("test-port", cfg, clk, nil, nil)
	require.NoError(t, err)
	return p
}

func TestPort_EnqueueDequeueFIFOOrder(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{QueueNum: 1, PrioQueueNum: 1}, clk)

	for i := 0; i < 5; i++ {
		res := p.Enqueue(Packet{Length: 100, Queue: 0})
		require.True(t, res.Accepted)
	}

	for i := 0; i < 5; i++ {
		res := p.Dequeue()
		require.True(t, res.Ok)
		require.EqualValues(t, 100, res.Packet.Length)
	}

	res := p.Dequeue()
	require.False(t, res.Ok)
	require.False(t, res.WakeSet)
}

func TestPort_OutOfRangeQueueClampsToLast(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{QueueNum: 3, PrioQueueNum: 3}, clk)

	res := p.Enqueue(Packet{Length: 100, Queue: protocol.QueueIndex(99)})
	require.True(t, res.Accepted)
	require.EqualValues(t, 1, p.queues[2].Len())
	require.True(t, p.queues[0].Empty())
	require.True(t, p.queues[1].Empty())
}

func TestPort_DropsOnSharedBufferFull(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{
		QueueNum:          1,
		PrioQueueNum:      1,
		BufferMode:        BufferShared,
		SharedBufferBytes: 150,
	}, clk)

	ok := p.Enqueue(Packet{Length: 100, Queue: 0})
	require.True(t, ok.Accepted)

	dropped := p.Enqueue(Packet{Length: 100, Queue: 0})
	require.False(t, dropped.Accepted)
	require.Equal(t, protocol.DropBufferFull, dropped.Reason)
}

func TestPort_NonECTPacketNeverMarked(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{
		QueueNum:     1,
		PrioQueueNum: 1,
		PortThresh:   0.0001,
		MeanPktSize:  1,
	}, clk)

	res := p.Enqueue(Packet{Length: 1000, Queue: 0, ECT: false})
	require.True(t, res.Accepted)

	out := p.Dequeue()
	require.True(t, out.Ok)
	require.False(t, out.Packet.CE)
}

func TestPort_PerPortMarksECTOverThreshold(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{
		QueueNum:      1,
		PrioQueueNum:  1,
		MarkingScheme: MarkingPerPort,
		MeanPktSize:   1,
		PortThresh:    500,
	}, clk)

	res := p.Enqueue(Packet{Length: 1000, Queue: 0, ECT: true})
	require.True(t, res.Accepted)

	out := p.Dequeue()
	require.True(t, out.Ok)
	require.True(t, out.Packet.CE)
}

func TestPort_ShaperDefersThenSucceeds(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{
		QueueNum:         1,
		PrioQueueNum:     1,
		LinkCapacityBPS:  1e9,
		BucketDurationNS: 6000, // half the 1500B packet's 12000ns cost: first candidate must wait
		BucketBytes:      750,  // 6000ns at 1Gbps, so the larger-of bucket size stays 6000ns
	}, clk)

	res := p.Enqueue(Packet{Length: 1500, Queue: 0})
	require.True(t, res.Accepted)

	out := p.Dequeue()
	require.False(t, out.Ok)
	require.True(t, out.WakeSet)

	clk.Set(monotime.Time(out.WakeAt))
	out = p.Dequeue()
	require.True(t, out.Ok)
}

func TestPort_TraceTotalAndPerQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockTel := telemetrymock.NewMockTelemetry(ctrl)

	clk := clock.NewManual(monotime.Time(0))
	p, err := newPort("test-port", &Config{QueueNum: 2, PrioQueueNum: 2}, clk, mockTel, nil)
	require.NoError(t, err)

	p.Enqueue(Packet{Length: 100, Queue: 0})
	p.Enqueue(Packet{Length: 200, Queue: 1})

	mockTel.EXPECT().TraceTotal(int64(7), protocol.ByteCount(300))
	require.NoError(t, p.TraceTotal(7))

	mockTel.EXPECT().TracePerQueue(int64(8), []protocol.ByteCount{100, 200})
	require.NoError(t, p.TracePerQueue(8))
}

func TestPort_ConfigureQueueThresh(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{QueueNum: 2, PrioQueueNum: 2}, clk)

	err := p.Configure("queue_thresh", []float64{10, 20})
	require.NoError(t, err)
	require.Equal(t, 10.0, p.queues[0].ThreshK)
	require.Equal(t, 20.0, p.queues[1].ThreshK)

	err = p.Configure("queue_thresh", []float64{1})
	require.Error(t, err)

	err = p.Configure("nonsense", 1)
	require.Error(t, err)
}

func TestNew_InvalidConfigReturnsConfigError(t *testing.T) {
	_, err := newPort("p", &Config{QueueNum: 1000}, clock.Real{}, nil, nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestPort_PrioWRRServesStrictPriorityFirst(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{
		QueueNum:     3,
		PrioQueueNum: 1,
		WRRQueueNum:  2,
	}, clk)

	p.Enqueue(Packet{Length: 100, Queue: 1})
	p.Enqueue(Packet{Length: 100, Queue: 0})

	out := p.Dequeue()
	require.True(t, out.Ok)
	require.EqualValues(t, 0, out.Packet.Queue)
}

func TestPort_Close(t *testing.T) {
	clk := clock.NewManual(monotime.Time(0))
	p := newTestPort(t, &Config{
		QueueNum:                  2,
		PrioQueueNum:              0,
		WRRQueueNum:               2,
		MarkingScheme:             MarkingMQGen,
		EstimateWeightEnableTimer: true,
		LinkCapacityBPS:           1e9,
	}, clk)
	require.NoError(t, p.Close())
}
