package portsched

import "github.com/quiclab/portsched/internal/protocol"

// Packet is the subset of packet state the scheduler core reads or
// writes. Classification into a queue index happens before Enqueue is
// called; see Port.Enqueue.
type Packet = protocol.Packet

// QueueIndex identifies one of a port's CoS queues.
type QueueIndex = protocol.QueueIndex

// ByteCount counts bytes of packet payload, queue occupancy, or buffer budget.
type ByteCount = protocol.ByteCount

// DropReason explains why Enqueue refused a packet.
type DropReason = protocol.DropReason

const (
	// DropNone is never attached to an actual drop.
	DropNone = protocol.DropNone
	// DropBufferFull means the shared or per-queue buffer budget was exceeded.
	DropBufferFull = protocol.DropBufferFull
)

// EnqueueResult is the outcome of Port.Enqueue (spec.md §6:
// "enqueue(pkt) → Accepted | Dropped{reason}").
type EnqueueResult struct {
	Accepted bool
	Reason   DropReason
}

// DequeueResult is the outcome of Port.Dequeue (spec.md §6:
// "dequeue() → SomePacket | NoneReady{wake_at?}").
type DequeueResult struct {
	Packet  Packet
	Ok      bool
	WakeAt  int64 // monotime.Time; only meaningful when !Ok and WakeSet
	WakeSet bool
}
