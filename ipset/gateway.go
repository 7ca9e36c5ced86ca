package ipset

import (
	"autoblock/ipaddresses"
	"autoblock/waf"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awswaf "github.com/aws/aws-sdk-go/service/waf"
	"github.com/rs/zerolog"
	"gopkg.in/cenkalti/backoff.v1"
)

// DefaultMaxAttempts is how many times an IP set fetch is tried before giving up.
const DefaultMaxAttempts = 10

// DefaultRetryInterval is the wait between two fetch attempts.
const DefaultRetryInterval = time.Second

// Options tunes the gateway.
type Options struct {
	// MaxAttempts bounds the IP set fetch attempts. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// BackOff paces the fetch attempts. Nil means a constant DefaultRetryInterval.
	BackOff backoff.BackOff

	// DryRun computes and logs the changes without submitting them.
	DryRun bool
}

// NewGateway creates an IP set gateway over a WAF client.
func NewGateway(logger zerolog.Logger, client Client, opts Options) waf.IPSetGateway {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	if opts.BackOff == nil {
		opts.BackOff = backoff.NewConstantBackOff(DefaultRetryInterval)
	}

	return &gatewayImpl{
		logger:      logger,
		client:      client,
		maxAttempts: opts.MaxAttempts,
		backOff:     opts.BackOff,
		dryRun:      opts.DryRun,
	}
}

type gatewayImpl struct {
	logger      zerolog.Logger
	client      Client
	maxAttempts int
	backOff     backoff.BackOff
	dryRun      bool
}

func (g *gatewayImpl) Descriptors(ctx context.Context, ipSetID string) (cidrs []string, err error) {
	set, err := g.getIPSet(ctx, ipSetID)
	if err != nil {
		return
	}

	for _, d := range set.IPSetDescriptors {
		if aws.StringValue(d.Type) != awswaf.IPSetDescriptorTypeIpv4 {
			continue
		}
		cidrs = append(cidrs, aws.StringValue(d.Value))
	}
	return
}

func (g *gatewayImpl) Sync(ctx context.Context, ipSetID string, desired []string) (result waf.SyncResult, err error) {
	logger := g.logger.With().Str("ipSet", ipSetID).Logger()

	remote, err := g.Descriptors(ctx, ipSetID)
	if err != nil {
		return
	}

	want := make(map[string]bool, len(desired))
	for _, ip := range desired {
		var v uint32
		if v, err = ipaddresses.ParseIPAddress(ip); err != nil {
			return
		}
		want[ipaddresses.ToOctets(v)] = true
	}

	var updates []*awswaf.IPSetUpdate
	seen := make(map[string]bool, len(remote))
	for _, cidr := range remote {
		var ip string
		if ip, err = ipaddresses.HostAddress(cidr); err != nil {
			return
		}
		v, _ := ipaddresses.ParseIPAddress(ip)
		ip = ipaddresses.ToOctets(v)

		if want[ip] {
			if !seen[ip] {
				result.Unchanged = append(result.Unchanged, ip)
				seen[ip] = true
			}
			continue
		}

		result.Removed = append(result.Removed, ip)
		updates = append(updates, newUpdate(awswaf.ChangeActionDelete, cidr))
	}

	for ip := range want {
		if seen[ip] {
			continue
		}

		var cidr string
		if cidr, err = ipaddresses.SingleHostCIDR(ip); err != nil {
			return
		}

		result.Added = append(result.Added, ip)
		updates = append(updates, newUpdate(awswaf.ChangeActionInsert, cidr))
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	sort.Strings(result.Unchanged)

	if len(updates) == 0 {
		logger.Info().Int("unchanged", len(result.Unchanged)).Msg("IP set already up to date")
		return
	}

	if g.dryRun {
		logger.Info().Strs("added", result.Added).Strs("removed", result.Removed).Msg("Dry run, not updating IP set")
		return
	}

	token, err := g.client.GetChangeTokenWithContext(ctx, &awswaf.GetChangeTokenInput{})
	if err != nil {
		err = fmt.Errorf("failed to get change token: %w", err)
		return
	}

	_, err = g.client.UpdateIPSetWithContext(ctx, &awswaf.UpdateIPSetInput{
		ChangeToken: token.ChangeToken,
		IPSetId:     aws.String(ipSetID),
		Updates:     updates,
	})
	if err != nil {
		err = fmt.Errorf("failed to update IP set %s: %w", ipSetID, err)
		return
	}

	logger.Info().Int("updates", len(updates)).Msg("Updated IP set")
	return
}

// getIPSet fetches an IP set, retrying AWS service errors until the attempts run out.
func (g *gatewayImpl) getIPSet(ctx context.Context, ipSetID string) (set *awswaf.IPSet, err error) {
	g.backOff.Reset()

	for attempt := 1; ; attempt++ {
		var out *awswaf.GetIPSetOutput
		out, err = g.client.GetIPSetWithContext(ctx, &awswaf.GetIPSetInput{IPSetId: aws.String(ipSetID)})
		if err == nil {
			if out.IPSet == nil {
				err = fmt.Errorf("IP set %s not returned", ipSetID)
				return
			}
			set = out.IPSet
			return
		}

		if !isRetryable(ctx, err) || attempt >= g.maxAttempts {
			err = fmt.Errorf("failed to get IP set %s after %d attempts: %w", ipSetID, attempt, err)
			return
		}

		wait := g.backOff.NextBackOff()
		if wait == backoff.Stop {
			err = fmt.Errorf("failed to get IP set %s: %w", ipSetID, err)
			return
		}

		g.logger.Warn().Err(err).Str("ipSet", ipSetID).Int("attempt", attempt).Msg("Failed to get IP set, retrying")

		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case <-time.After(wait):
		}
	}
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() != request.CanceledErrorCode
}

func newUpdate(action string, cidr string) *awswaf.IPSetUpdate {
	return &awswaf.IPSetUpdate{
		Action: aws.String(action),
		IPSetDescriptor: &awswaf.IPSetDescriptor{
			Type:  aws.String(awswaf.IPSetDescriptorTypeIpv4),
			Value: aws.String(cidr),
		},
	}
}
