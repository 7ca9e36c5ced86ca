package ratelimit

import (
	"autoblock/ipaddresses"
	"autoblock/waf"
	"fmt"
	"sort"
	"time"
)

// Reconciler turns the violators of a run and the persisted state into the desired blocklist.
type Reconciler struct {
	blockDurationMinutes int
	capacity             int
	now                  func() time.Time
}

// NewReconciler creates a reconciler. now is the clock used to expire records.
func NewReconciler(config waf.RateLimitConfig, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}

	return &Reconciler{
		blockDurationMinutes: config.BlockDurationMinutes,
		capacity:             config.EffectiveCapacity(),
		now:                  now,
	}
}

// Reconcile merges the new violators into the persisted ones, then drops expired records and
// records of IPs in the do-not-block set, and finally keeps the capacity worst offenders.
// The result is both the state to persist and the desired IP set membership.
// Inputs are not modified.
func (r *Reconciler) Reconcile(newViolators waf.ViolatorMap, persisted waf.ViolatorMap, doNotBlock waf.RangeSet) (reconciled waf.ViolatorMap, err error) {
	merged := make(waf.ViolatorMap, len(newViolators)+len(persisted))
	for ip, rec := range persisted {
		merged[ip] = rec
	}

	// New records replace persisted ones, even when the persisted peak was higher.
	for ip, rec := range newViolators {
		merged[ip] = rec
	}

	now := r.now()
	candidates := make([]string, 0, len(merged))
	for ip, rec := range merged {
		if r.expired(rec, now) {
			continue
		}

		var v uint32
		v, err = ipaddresses.ParseIPAddress(ip)
		if err != nil {
			if _, isNew := newViolators[ip]; isNew {
				err = fmt.Errorf("violator has an invalid address: %w", err)
			} else {
				err = fmt.Errorf("violation state holds an invalid address: %w", err)
			}
			return
		}

		if doNotBlock != nil && doNotBlock.Contains(v) {
			continue
		}

		candidates = append(candidates, ip)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := merged[candidates[i]], merged[candidates[j]]
		if a.MaxRate != b.MaxRate {
			return a.MaxRate > b.MaxRate
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > r.capacity {
		candidates = candidates[:r.capacity]
	}

	reconciled = make(waf.ViolatorMap, len(candidates))
	for _, ip := range candidates {
		reconciled[ip] = merged[ip]
	}

	return
}

func (r *Reconciler) expired(rec waf.ViolationRecord, now time.Time) bool {
	minutes := int64(now.Sub(rec.Time) / time.Minute)
	return minutes >= int64(r.blockDurationMinutes)
}
