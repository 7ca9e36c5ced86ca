package ratelimit

import (
	"autoblock/waf"
	"time"
)

// Count returns the number of events per counting bucket.
func Count(events []waf.LogEvent, policy CountingPolicy) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[policy.Key(e)]++
	}
	return counts
}

// Identify returns the IPs with a bucket strictly over the limit. An IP over the limit in several
// buckets keeps its highest count. Every record is stamped with now.
func Identify(counts map[string]int, policy CountingPolicy, limit int, now time.Time) waf.ViolatorMap {
	violators := waf.ViolatorMap{}
	for key, count := range counts {
		if count <= limit {
			continue
		}

		ip := policy.IP(key)
		if rec, ok := violators[ip]; ok {
			if count > rec.MaxRate {
				rec.MaxRate = count
				violators[ip] = rec
			}
			continue
		}

		violators[ip] = waf.ViolationRecord{Time: now, MaxRate: count}
	}
	return violators
}
