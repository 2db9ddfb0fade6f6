package estimator

import "time"

func durationFromNS(ns float64) time.Duration {
	return time.Duration(ns)
}
