// Package telemetry implements the port's telemetry outputs: spec.md §6's
// ASCII trace lines and (as an additive wiring of the domain stack) a
// Prometheus metrics sink.
package telemetry

import (
	"fmt"
	"io"
	"strings"

	"github.com/quiclab/portsched/internal/protocol"
)

// Writer emits the two ASCII line formats spec.md §6 specifies:
// "<time>, <bytes_total>" and "<time>, <bytes_q0>, <bytes_q1>, …". The
// underlying io.Writer is the opaque "telemetry byte channel" the spec
// treats as an external collaborator.
type Writer struct {
	out io.Writer
}

// NewWriter returns a Writer over out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// TraceTotal writes one "<tick>, <bytes_total>" line.
func (w *Writer) TraceTotal(tick int64, totalBytes protocol.ByteCount) error {
	_, err := fmt.Fprintf(w.out, "%d, %d\n", tick, totalBytes)
	return err
}

// TracePerQueue writes one "<tick>, <bytes_q0>, <bytes_q1>, …" line.
func (w *Writer) TracePerQueue(tick int64, perQueue []protocol.ByteCount) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", tick)
	for _, bytes := range perQueue {
		fmt.Fprintf(&b, ", %d", bytes)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w.out, b.String())
	return err
}
