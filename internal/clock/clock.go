// Package clock abstracts time so tests can inject a virtual clock, per
// spec: "tests inject a virtual clock. Clock must be monotonically
// non-decreasing within the data-path thread." Mirrors the teacher's own
// Clock seam (internal/congestion's newPacer(p.BandwidthEstimate) pattern
// takes a Clock rather than calling time.Now directly).
package clock

import "github.com/quiclab/portsched/internal/monotime"

// Clock returns the current monotonic time.
type Clock interface {
	Now() monotime.Time
}

// Real is the production Clock, backed by monotime.Now.
type Real struct{}

// Now implements Clock.
func (Real) Now() monotime.Time { return monotime.Now() }

// Manual is a Clock for tests: it never advances on its own.
type Manual struct {
	t monotime.Time
}

// NewManual returns a Manual clock starting at t0.
func NewManual(t0 monotime.Time) *Manual {
	return &Manual{t: t0}
}

// Now implements Clock.
func (m *Manual) Now() monotime.Time { return m.t }

// Advance moves the clock forward by d. Panics if d is negative, since the
// clock must be monotonically non-decreasing within the data-path thread.
func (m *Manual) Advance(d monotime.Time) {
	if d < 0 {
		panic("clock: negative advance")
	}
	m.t += d
}

// Set moves the clock to an absolute time, which must not be before the
// current one.
func (m *Manual) Set(t monotime.Time) {
	if t < m.t {
		panic("clock: time must not go backwards")
	}
	m.t = t
}
