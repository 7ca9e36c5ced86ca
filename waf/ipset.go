package waf

import "context"

// SyncResult is the outcome of reconciling a remote IP set against a desired membership.
// Each list holds plain IPv4 addresses in ascending order.
type SyncResult struct {
	Added     []string
	Removed   []string
	Unchanged []string
}

// Changed reports whether the sync added or removed anything.
func (r SyncResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// IPSetGateway is the remote firewall IP set resource.
type IPSetGateway interface {
	// Descriptors returns the IPv4 CIDR blocks currently in an IP set.
	Descriptors(ctx context.Context, ipSetID string) (cidrs []string, err error)

	// Sync makes the IP set contain exactly the desired addresses, as /32 entries.
	Sync(ctx context.Context, ipSetID string, desired []string) (result SyncResult, err error)
}
