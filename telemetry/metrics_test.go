package telemetry_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/telemetry"
)

func TestMetrics_QueueDepthAndDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg, "eth0")

	m.SetQueueDepth(0, 1500)
	m.IncDrop(protocol.DropBufferFull)
	m.IncMark("per-port")
	m.IncShaperDefer()

	families, err := reg.Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	require.True(t, found["portsched_queue_depth_bytes"])
	require.True(t, found["portsched_drops_total"])
	require.True(t, found["portsched_ecn_marks_total"])
	require.True(t, found["portsched_shaper_defers_total"])
}
