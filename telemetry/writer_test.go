package telemetry_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/telemetry"
)

func TestWriter_TraceTotal(t *testing.T) {
	var buf bytes.Buffer
	w := telemetry.NewWriter(&buf)
	require.NoError(t, w.TraceTotal(42, 1000))
	require.Equal(t, "42, 1000\n", buf.String())
}

func TestWriter_TracePerQueue(t *testing.T) {
	var buf bytes.Buffer
	w := telemetry.NewWriter(&buf)
	require.NoError(t, w.TracePerQueue(7, []protocol.ByteCount{100, 200, 300}))
	require.Equal(t, "7, 100, 200, 300\n", buf.String())
}
