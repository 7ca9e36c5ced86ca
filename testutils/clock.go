package testutils

import "time"

// FixedClock returns a clock function that always reads ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
