package estimator

import "math"

// RoundTime is the EWMA of the time to complete one WRR service round,
// consumed by MQ-ECN-RR marking. Updated on every round-boundary event
// (spec.md §4.4) and decayed during idle periods (spec.md §4.7).
type RoundTime struct {
	Alpha         float64 // this estimator's own EWMA gain (estimate_round_alpha_)
	IntervalBytes float64 // idle-decay cadence, in bytes of transmission time
	LinkCapacityBP float64 // bits/sec
	MaxIdleIterations int // cap on decay iterations for a very long idle period

	estimate float64 // ns
}

// NS returns the current round-time estimate in nanoseconds.
func (r *RoundTime) NS() float64 { return r.estimate }

// OnRoundBoundary applies the EWMA update when a WRR service round
// completes (either the queue drained or the packet didn't fit in the
// remaining deficit), per spec.md §4.4: "update round_time EWMA".
func (r *RoundTime) OnRoundBoundary(sampleNS float64) {
	r.estimate = r.estimate*r.Alpha + sampleNS*(1-r.Alpha)
}

// DecayIdle applies the idle-period decay when the lower WRR tier has
// been empty, reproducing original_source/NS2/scheduling/prio_dwrr/
// prio_dwrr.cc's MQ_MARKING_RR branch BIT-FOR-BIT, including its
// copy-paste bug: the decay uses quantumAlpha (estimate_quantum_alpha_ in
// the original), not r.Alpha (estimate_round_alpha_), even though this is
// the round-time estimator. spec.md §9 open question (a) calls this out
// explicitly and asks that it be flagged, not silently fixed — so it is
// reproduced here rather than "corrected" to r.Alpha.
func (r *RoundTime) DecayIdle(idleNS float64, quantumAlpha float64) {
	if r.IntervalBytes <= 0 || r.LinkCapacityBP <= 0 {
		r.estimate = 0
		return
	}
	intervalNS := r.IntervalBytes * 8 / r.LinkCapacityBP * 1e9
	n := idleNS / intervalNS
	if r.MaxIdleIterations > 0 && n > float64(r.MaxIdleIterations) {
		r.estimate = 0
		return
	}
	intervalNum := math.Trunc(n)
	r.estimate = r.estimate * math.Pow(quantumAlpha, intervalNum)
}

// Reset clears accumulated state.
func (r *RoundTime) Reset() {
	r.estimate = 0
}
