//go:build linux

package monotime

import "golang.org/x/sys/unix"

// now reads CLOCK_MONOTONIC directly via clock_gettime(2), the same
// syscall backing the kernel source's ktime_get_ns(), instead of going
// through time.Now()'s wall+monotonic reading. This keeps the scheduler's
// notion of time byte-for-byte aligned with what a real qdisc would see.
func now() Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return fallbackNow()
	}
	return Time(ts.Nano())
}
