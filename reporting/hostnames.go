package reporting

import (
	"autoblock/ipaddresses"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

// UnknownHostname is reported for addresses without a resolvable PTR record.
const UnknownHostname = "hostname unknown"

const resolvConfPath = "/etc/resolv.conf"

// HostnameResolver finds the host name of an IP address.
type HostnameResolver interface {
	LookupHostname(ctx context.Context, ipAddr string) string
}

// NewDNSResolver creates a resolver that sends PTR queries to server (host:port).
// An empty server means the first nameserver of /etc/resolv.conf.
func NewDNSResolver(logger zerolog.Logger, server string) (resolver HostnameResolver, err error) {
	if server == "" {
		var cfg *dns.ClientConfig
		if cfg, err = dns.ClientConfigFromFile(resolvConfPath); err != nil {
			err = fmt.Errorf("failed to read %s: %w", resolvConfPath, err)
			return
		}
		if len(cfg.Servers) == 0 {
			err = fmt.Errorf("no nameserver in %s", resolvConfPath)
			return
		}
		server = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	}

	resolver = &dnsResolver{
		logger: logger,
		client: &dns.Client{Timeout: 2 * time.Second},
		server: server,
	}
	return
}

type dnsResolver struct {
	logger zerolog.Logger
	client *dns.Client
	server string
}

func (r *dnsResolver) LookupHostname(ctx context.Context, ipAddr string) string {
	// Reserved ranges have no public reverse zone.
	if special, err := ipaddresses.IsSpecialPurposeAddress(ipAddr); err != nil || special {
		return UnknownHostname
	}

	name, err := dns.ReverseAddr(ipAddr)
	if err != nil {
		return UnknownHostname
	}

	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypePTR)

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		r.logger.Warn().Err(err).Str("ip", ipAddr).Msg("Failed to get hostname for IP")
		return UnknownHostname
	}

	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}

	return UnknownHostname
}
