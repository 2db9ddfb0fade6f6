// Package admission implements the buffer & admission controller of
// spec.md §4.1: a shared-buffer or per-queue-static check run before a
// packet is pushed onto its queue.
package admission

import (
	"github.com/quiclab/portsched/internal/invariant"
	"github.com/quiclab/portsched/internal/protocol"
	"github.com/quiclab/portsched/internal/queue"
)

// Mode selects between shared and static buffer accounting.
type Mode int

const (
	// Shared admits against one port-wide budget (spec.md §4.1 default).
	Shared Mode = iota
	// Static admits each queue against its own independent budget.
	Static
)

// Controller enforces buffer_limit (shared) or per_queue_limit[i]
// (static), both expressed in bytes (already scaled from mean-packet-size
// units by the caller's configuration layer).
type Controller struct {
	Mode            Mode
	SharedBufferLim protocol.ByteCount

	totalBytes protocol.ByteCount
}

// Admit checks whether pkt of pktBytes may be pushed onto q, per spec.md
// §4.1: "Failure → the packet is dropped, drop counters incremented, no
// further state changes." The caller increments drop counters itself;
// Admit only returns the boolean the data path needs.
func (c *Controller) Admit(q *queue.Queue, pktBytes protocol.ByteCount) bool {
	switch c.Mode {
	case Static:
		return q.Bytes()+pktBytes <= q.BufferLimit
	default:
		return c.totalBytes+pktBytes <= c.SharedBufferLim
	}
}

// OnEnqueue must be called exactly once, after Admit returned true and the
// packet has been pushed onto q, to keep the shared-mode running total in
// sync (invariant 1: total_bytes = Σ queue[i].bytes).
func (c *Controller) OnEnqueue(pktBytes protocol.ByteCount) {
	c.totalBytes += pktBytes
}

// OnDequeue must be called exactly once, after a packet of poppedLen has
// been popped from any queue.
func (c *Controller) OnDequeue(poppedLen protocol.ByteCount) {
	c.totalBytes -= poppedLen
	invariant.Assert(c.totalBytes >= 0, "admission: total_bytes went negative (%d)", c.totalBytes)
}

// TotalBytes returns the controller's tracked shared-mode total. In static
// mode this still tracks the port-wide sum for telemetry purposes even
// though admission decisions ignore it.
func (c *Controller) TotalBytes() protocol.ByteCount { return c.totalBytes }
