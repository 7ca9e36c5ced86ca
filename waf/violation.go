package waf

import (
	"sort"
	"time"
)

// ViolationRecord is the blocking state of one IP address.
type ViolationRecord struct {
	// Time is when the run that created the record first saw the IP over the limit.
	Time time.Time

	// MaxRate is the highest request count per counting window observed for the IP.
	MaxRate int
}

// ViolatorMap maps IPv4 addresses in dotted-quad notation to their violation state.
type ViolatorMap map[string]ViolationRecord

// IPs returns the addresses in the map in ascending string order.
func (m ViolatorMap) IPs() []string {
	ips := make([]string, 0, len(m))
	for ip := range m {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}
