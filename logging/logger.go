// Package logging provides the port's debug diagnostics channel, adapted
// from the teacher's PragueLogger (logging/prague_logger.go): a
// log.Logger wrapped with an enabled flag and one method per event kind,
// instead of a general-purpose structured logger.
package logging

import (
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/quiclab/portsched/internal/protocol"
)

// PortLogger emits per-decision diagnostics when Config.Debug is set
// (spec.md §6: "debug | Emit per-decision diagnostics | false"). Emission
// is rate-limited so a backlogged port under debug logging doesn't itself
// become the bottleneck.
type PortLogger struct {
	logger  *log.Logger
	enabled bool
	limiter *rate.Limiter
}

// NewPortLogger returns a logger for portID, enabled per the debug
// config flag. The limiter caps diagnostic output at burst 64 messages
// and steady-state 200/s, loose enough to see a burst of drops without
// flooding stderr during a sustained overload.
func NewPortLogger(portID string, enabled bool) *PortLogger {
	return &PortLogger{
		logger:  log.New(os.Stderr, fmt.Sprintf("[port:%s] ", portID), log.LstdFlags|log.Lmicroseconds),
		enabled: enabled,
		limiter: rate.NewLimiter(rate.Limit(200), 64),
	}
}

func (l *PortLogger) allow() bool {
	return l.enabled && l.limiter.Allow()
}

// LogDrop logs an admission-controller drop.
func (l *PortLogger) LogDrop(q protocol.QueueIndex, reason protocol.DropReason, pktBytes protocol.ByteCount) {
	if !l.allow() {
		return
	}
	l.logger.Printf("drop queue=%d reason=%s bytes=%d", q, reason, pktBytes)
}

// LogMark logs an ECN CE mark.
func (l *PortLogger) LogMark(q protocol.QueueIndex, scheme string, qBytes protocol.ByteCount) {
	if !l.allow() {
		return
	}
	l.logger.Printf("mark queue=%d scheme=%s queue_bytes=%d", q, scheme, qBytes)
}

// LogShaperDefer logs a shaper wake-up schedule.
func (l *PortLogger) LogShaperDefer(wakeAt time.Duration) {
	if !l.allow() {
		return
	}
	l.logger.Printf("shaper defer wake_in=%s", wakeAt)
}

// LogSelect logs which queue the scheduler chose to serve.
func (l *PortLogger) LogSelect(discipline string, q protocol.QueueIndex) {
	if !l.allow() {
		return
	}
	l.logger.Printf("select discipline=%s queue=%d", discipline, q)
}
