// Package shaper implements the port's token-bucket rate limiter
// (spec.md §4.8), using the fixed-point ns-equivalent math of the kernel
// token-bucket variants to avoid a divide per packet on the data path.
package shaper

import (
	"time"

	"github.com/quiclab/portsched/internal/monotime"
	"github.com/quiclab/portsched/internal/protocol"
)

func durationNS(ns int64) time.Duration { return time.Duration(ns) }

const fixedPointShift = 15

// TokenBucket is the shaper state: tokens and bucket size are both
// denominated in ns-equivalents (time to transmit that many bytes at
// RateBPS), per spec.md §4.8.
type TokenBucket struct {
	RateBPS   float64 // rate_bps
	BucketNS  int64   // bucket_ns
	tokens    int64
	timeNS    int64
	mult      uint64
	haveMult  bool
}

// NewTokenBucket returns a shaper configured for rateBPS with a token
// bucket capacity of bucketNS nanoseconds, initialized full.
func NewTokenBucket(rateBPS float64, bucketNS int64, now monotime.Time) *TokenBucket {
	tb := &TokenBucket{RateBPS: rateBPS, BucketNS: bucketNS, tokens: bucketNS, timeNS: int64(now)}
	tb.computeMult()
	return tb
}

func (tb *TokenBucket) computeMult() {
	if tb.RateBPS <= 0 {
		tb.mult = 0
		tb.haveMult = false
		return
	}
	// mult = 8e9 * 2^15 / rate_bps, shift = 15, so len_ns = (len*mult) >> shift.
	tb.mult = uint64(8e9 * float64(uint64(1)<<fixedPointShift) / tb.RateBPS)
	tb.haveMult = true
}

// pktNS converts a packet length in bytes to its ns-equivalent
// transmission time using the precomputed fixed-point multiply.
func (tb *TokenBucket) pktNS(length protocol.ByteCount) int64 {
	if !tb.haveMult {
		return 0
	}
	return int64((uint64(length) * tb.mult) >> fixedPointShift)
}

// Decision is the result of TryDequeue: either the packet is admitted, or
// the caller must wait until WakeAt before calling again.
type Decision struct {
	Emit   bool
	WakeAt monotime.Time
}

// TryDequeue implements spec.md §4.8's per-candidate check: refill tokens
// up to BucketNS since the last refill, and emit iff they cover (are at
// least) the candidate packet's ns-equivalent cost.
func (tb *TokenBucket) TryDequeue(length protocol.ByteCount, now monotime.Time) Decision {
	elapsed := int64(now) - tb.timeNS
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > tb.BucketNS {
		elapsed = tb.BucketNS
	}
	toks := elapsed + tb.tokens

	pktNS := tb.pktNS(length)
	if toks >= pktNS {
		tb.tokens = toks - pktNS
		if tb.tokens > tb.BucketNS {
			tb.tokens = tb.BucketNS
		}
		tb.timeNS = int64(now)
		return Decision{Emit: true}
	}

	wakeAt := now.Add(durationNS(pktNS - toks))
	return Decision{Emit: false, WakeAt: wakeAt}
}
