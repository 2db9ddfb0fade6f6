// Package invariant centralizes the "fail loudly" assertions spec.md §7
// requires for configuration faults and invariant violations: both are
// implementer/caller bugs, never transient conditions, and are never
// retried.
package invariant

import "fmt"

// Violation is the panic value raised by Assert. Callers that want to
// recover (e.g. a fuzzing harness) can type-assert on it rather than
// matching an error string.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string { return v.Msg }

// Assert panics with a Violation if cond is false. Used for both
// configuration faults discovered on the data path (non-positive
// weight/quantum) and true invariant violations
// (not work-conserving, negative byte counts).
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(&Violation{Msg: fmt.Sprintf(format, args...)})
	}
}
