package waf

// CountingWindow selects how requests are bucketed before they are compared to the rate limit.
type CountingWindow string

const (
	// PerMinute counts requests per IP per calendar minute.
	PerMinute CountingWindow = "per-minute"

	// PerBatch counts requests per IP over the whole batch, which the caller guarantees spans one interval.
	PerBatch CountingWindow = "per-batch"
)

// DefaultCapacity is the maximum number of entries the remote IP set accepts.
const DefaultCapacity = 1000

// RateLimitConfig holds the options of the rate limiting processor.
type RateLimitConfig struct {
	Environment          string
	ManualAllowListID    string
	ManualDenyListID     string
	AutoBlockListID      string
	RequestRateLimit     int
	BlockDurationMinutes int
	CountingWindow       CountingWindow

	// Capacity caps the number of auto blocked IPs. Zero means DefaultCapacity.
	Capacity int
}

// EffectiveCapacity returns Capacity, or DefaultCapacity when unset.
func (c RateLimitConfig) EffectiveCapacity() int {
	if c.Capacity <= 0 {
		return DefaultCapacity
	}
	return c.Capacity
}
