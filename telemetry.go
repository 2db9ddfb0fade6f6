package portsched

import "github.com/quiclab/portsched/internal/protocol"

// Telemetry is the write-only byte-channel collaborator spec.md §6 treats
// as external: "trace_total(tick)/trace_per_queue(tick) → bytes written
// to the telemetry byte channel (opaque)". *telemetry.Writer implements
// it for production use; internal/telemetrymock.MockTelemetry implements
// it for tests that need to assert exact call arguments.
type Telemetry interface {
	TraceTotal(tick int64, totalBytes protocol.ByteCount) error
	TracePerQueue(tick int64, perQueue []protocol.ByteCount) error
}
