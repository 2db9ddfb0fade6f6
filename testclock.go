package portsched

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quiclab/portsched/internal/clock"
	"github.com/quiclab/portsched/internal/monotime"
)

// ManualClock is a monotonic clock a caller controls explicitly, for
// tests that need Port's notion of time to advance by a known amount
// rather than by wall-clock drift — e.g. driving a latency-based marking
// threshold or a shaper's wake time deterministically. It wraps the
// internal virtual clock the same way the teacher's own congestion
// control tests inject a fixed-step clock instead of calling time.Now.
type ManualClock struct {
	m *clock.Manual
}

// NewManualClock returns a ManualClock starting at startNS nanoseconds
// on an arbitrary monotonic epoch.
func NewManualClock(startNS int64) *ManualClock {
	return &ManualClock{m: clock.NewManual(monotime.Time(startNS))}
}

// Now returns the clock's current value in nanoseconds.
func (c *ManualClock) Now() int64 { return int64(c.m.Now()) }

// Advance moves the clock forward by d. Panics if d is negative.
func (c *ManualClock) Advance(d time.Duration) {
	c.m.Advance(monotime.Time(d.Nanoseconds()))
}

// Set moves the clock to an absolute nanosecond value, which must not be
// before the current one.
func (c *ManualClock) Set(ns int64) {
	c.m.Set(monotime.Time(ns))
}

// NewWithClock is New, but takes an explicit clock instead of the real
// one — the seam integration tests use to drive latency- and
// shaper-boundary scenarios deterministically instead of racing
// wall-clock time.
func NewWithClock(cfg *Config, tel Telemetry, reg *prometheus.Registry, clk *ManualClock) (*Port, error) {
	return newPort(uuid.NewString(), cfg, clk.m, tel, reg)
}
