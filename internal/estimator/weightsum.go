// Package estimator implements the two online estimators MQ-ECN-Generic,
// MQ-ECN-RR and PIE-like marking read from: an EWMA of the exact sum of
// active weights (or quanta), and a per-queue drain-rate estimator.
//
// Grounded in the teacher's pragueSender.updateAlpha EWMA pattern
// (internal/congestion/prague_sender.go: "alpha = (1-g)*alpha + g*f") and
// in PRIO_DWRR::timeout / dwrr_qdisc_enqueue's weight-sum and idle-decay
// formulas (original_source NS2/scheduling/prio_dwrr/prio_dwrr.cc,
// kernel modules/sch_dwrr/main.c).
package estimator

import "math"

// WeightSum is the EWMA of the sum of active weights (WFQ, MQ-ECN-Gen) or
// active quanta (WRR, MQ-ECN-Gen over WRR). Two code paths feed it, per
// spec.md §4.7: a periodic timer, or data-path polling of elapsed time —
// both must agree within one sample after an idle period.
type WeightSum struct {
	Alpha          float64 // EWMA gain, (0,1)
	IntervalBytes  float64 // sampling cadence, expressed in bytes of transmission time
	LinkCapacityBP float64 // bits/sec

	estimate float64
	lastSampleNS int64 // ns since an arbitrary epoch, last time estimate was updated
	haveLast     bool
}

// Estimate returns the current Ŵ.
func (w *WeightSum) Estimate() float64 { return w.estimate }

// period returns T = interval_bytes * 8 / capacity, in nanoseconds.
func (w *WeightSum) period() float64 {
	if w.LinkCapacityBP <= 0 {
		return 0
	}
	return w.IntervalBytes * 8 / w.LinkCapacityBP * 1e9
}

// Poll implements the data-path-driven variant (spec.md §4.7(b)): called
// on every dequeue with the exact current active-weight sum and the
// current time; updates the EWMA only once elapsed time reaches 0.995·T,
// matching the source's countdown-timer cadence without an actual timer.
func (w *WeightSum) Poll(nowNS int64, exactSum float64) {
	T := w.period()
	if T <= 0 {
		return
	}
	if !w.haveLast {
		w.lastSampleNS = nowNS
		w.haveLast = true
		return
	}
	elapsed := float64(nowNS - w.lastSampleNS)
	if elapsed >= 0.995*T {
		w.estimate = w.Alpha*w.estimate + (1-w.Alpha)*exactSum
		w.lastSampleNS = nowNS
	}
}

// Tick implements the explicit-timer variant (spec.md §4.7(a),
// estimate_weight_enable_timer=true): called once per period by the
// timer, unconditionally applying the same EWMA formula.
func (w *WeightSum) Tick(nowNS int64, exactSum float64) {
	w.estimate = w.Alpha*w.estimate + (1-w.Alpha)*exactSum
	w.lastSampleNS = nowNS
	w.haveLast = true
}

// DecayIdle applies the idle-period decay Ŵ ← Ŵ · α^(Δ/T), used when the
// port has been completely idle (spec.md §4.7: "During an idle period of
// length Δ"). Mirrors PRIO_DWRR::timeout's MQ_MARKING_GENER idle-reset
// branch, which (unlike the round-time branch) decays with its own alpha
// correctly.
func (w *WeightSum) DecayIdle(idleNS int64) {
	T := w.period()
	if T <= 0 {
		w.estimate = 0
		return
	}
	w.estimate = w.estimate * math.Pow(w.Alpha, float64(idleNS)/T)
}

// Reset clears accumulated state, e.g. on port teardown/reinit.
func (w *WeightSum) Reset() {
	w.estimate = 0
	w.haveLast = false
	w.lastSampleNS = 0
}
