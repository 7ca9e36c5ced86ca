package ipaddresses

// IANA IPv4 special-purpose address registry (RFC 6890 and updates).
var specialPurposeBlocks = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.31.196.0/24",
	"192.52.193.0/24",
	"192.88.99.0/24",
	"192.168.0.0/16",
	"192.175.48.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"255.255.255.255/32",
}

type addressRange struct {
	low  uint32
	high uint32
}

var specialPurposeRanges = mustRanges(specialPurposeBlocks)

func mustRanges(blocks []string) []addressRange {
	ranges := make([]addressRange, 0, len(blocks))
	for _, cidr := range blocks {
		low, high, err := CIDRBounds(cidr)
		if err != nil {
			panic(err)
		}
		ranges = append(ranges, addressRange{low: low, high: high})
	}
	return ranges
}

// IsSpecialPurposeAddress reports whether an address is in one of the IANA special-purpose blocks,
// such as private, loopback, link-local or documentation ranges.
func IsSpecialPurposeAddress(ipAddr string) (special bool, err error) {
	ip, err := ParseIPAddress(ipAddr)
	if err != nil {
		return
	}

	for _, r := range specialPurposeRanges {
		if ip >= r.low && ip <= r.high {
			special = true
			return
		}
	}
	return
}
