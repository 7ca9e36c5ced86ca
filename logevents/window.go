package logevents

import (
	"autoblock/waf"
	"time"
)

// FilterWindow returns the events with a timestamp in [from, to).
func FilterWindow(events []waf.LogEvent, from time.Time, to time.Time) []waf.LogEvent {
	kept := make([]waf.LogEvent, 0, len(events))
	for _, e := range events {
		ts := e.Timestamp()
		if ts.Before(from) || !ts.Before(to) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
