package waf

import "context"

// RangeSet answers whether an IPv4 address, as its 32-bit value, lies in any of a set of closed ranges.
type RangeSet interface {
	Contains(ip uint32) bool
	Len() int
}

// RangeSetBuilder builds the set of addresses that must never be auto blocked.
type RangeSetBuilder interface {
	Build(ctx context.Context, allowListID string, denyListID string) (RangeSet, error)
}
