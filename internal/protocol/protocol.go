// Package protocol defines the small value types shared by every layer of
// the scheduler core: byte counts, queue indices and the wire-visible
// packet attributes the core is allowed to read or write.
package protocol

import "math"

// ByteCount counts bytes of packet payload, queue occupancy or buffer
// budget. It is a distinct type from int so that byte-denominated and
// packet-count-denominated values can never be mixed by accident.
type ByteCount int64

// InvalidByteCount marks a ByteCount that has not been computed yet.
const InvalidByteCount ByteCount = -1

// MaxByteCount is used as a sentinel "unbounded" budget.
const MaxByteCount ByteCount = math.MaxInt64

// QueueIndex identifies one of a port's CoS queues.
type QueueIndex int

// InvalidQueueIndex marks the absence of a selected queue.
const InvalidQueueIndex QueueIndex = -1

// MaxQueues is the largest number of CoS queues a port may be configured
// with (spec: "up to 64").
const MaxQueues = 64

// VirtualTime is WFQ's monotone bookkeeping clock, denominated in the same
// units as ByteCount/Weight (bytes per unit weight).
type VirtualTime float64

// PosInfVirtualTime is the head_finish_time of an empty WFQ queue.
var PosInfVirtualTime = VirtualTime(math.Inf(1))

// DropReason explains why Enqueue refused a packet.
type DropReason int

const (
	// DropNone is the zero value; never attached to an actual drop.
	DropNone DropReason = iota
	// DropBufferFull means the shared or per-queue buffer budget was exceeded.
	DropBufferFull
)

func (r DropReason) String() string {
	switch r {
	case DropBufferFull:
		return "buffer-full"
	default:
		return "none"
	}
}

// Packet is the subset of packet state the scheduler core reads or
// writes. Everything else about a packet (headers, payload) is opaque to
// this module; classification into a QueueIndex happens before Enqueue is
// called.
type Packet struct {
	// Length is the packet's accounted byte length, inclusive of any
	// configured per-packet framing overhead (see Config.FramingOverheadBytes).
	Length ByteCount

	// Queue is the CoS queue this packet was classified into. Out-of-range
	// values are clamped to the last queue by the caller (Port.Enqueue),
	// per spec: "this clamp is a contract, not an error".
	Queue QueueIndex

	// ECT is true when the packet is ECN-capable (the classifier observed
	// the ECT(0) or ECT(1) codepoint). Only ECT packets may be CE-marked.
	ECT bool

	// CE is set by a marker when it decides to signal congestion. Never
	// set on a non-ECT packet.
	CE bool

	// EnqTime is the enqueue-time timestamp stashed by the Latency and
	// CoDel markers; zero (monotime.Time{}) when unused.
	EnqTime int64 // monotime.Time, stored as int64 to avoid an import cycle
}
