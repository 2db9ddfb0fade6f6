// Package classify provides optional classifier helpers. spec.md §6
// treats classification as a pure external function the core never
// depends on; this package exists for callers who want the kernel
// source's table-lookup-with-default behavior without reimplementing it.
package classify

import "github.com/quiclab/portsched/internal/protocol"

// DSCPTable maps a 6-bit DSCP codepoint to a CoS queue index, mirroring
// the kernel modules' QUEUE_DSCP[] lookup table
// (original_source/kernel modules/sch_dwrr/main.c,
// original_source/kernel modules/sch_wfq/main.c): non-IP packets, or any
// DSCP value with no explicit entry, classify to queue 0.
type DSCPTable struct {
	table [64]protocol.QueueIndex
	set   [64]bool
}

// NewDSCPTable returns a table where every DSCP value defaults to queue 0
// until overridden by Set.
func NewDSCPTable() *DSCPTable {
	return &DSCPTable{}
}

// Set maps dscp (0-63) to queue idx.
func (t *DSCPTable) Set(dscp uint8, idx protocol.QueueIndex) {
	t.table[dscp&0x3F] = idx
	t.set[dscp&0x3F] = true
}

// Classify returns the queue index for dscp, or queue 0 if unconfigured.
func (t *DSCPTable) Classify(dscp uint8) protocol.QueueIndex {
	dscp &= 0x3F
	if !t.set[dscp] {
		return 0
	}
	return t.table[dscp]
}

// ClassifyIP reads the DSCP field out of an IPv4/IPv6 ToS/Traffic-Class
// byte (the top 6 bits) and classifies it. isIP is false for anything the
// caller didn't parse as an IP header, in which case the result is always
// queue 0, matching the kernel source's non-IP default.
func (t *DSCPTable) ClassifyIP(tosOrTrafficClass uint8, isIP bool) protocol.QueueIndex {
	if !isIP {
		return 0
	}
	return t.Classify(tosOrTrafficClass >> 2)
}
