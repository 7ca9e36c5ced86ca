package rangeset

import (
	"autoblock/waf"
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// NewBuilder creates a builder that reads the manual allow and deny lists through the given gateway.
func NewBuilder(logger zerolog.Logger, gateway waf.IPSetGateway) waf.RangeSetBuilder {
	return &builderImpl{logger: logger, gateway: gateway}
}

type builderImpl struct {
	logger  zerolog.Logger
	gateway waf.IPSetGateway
}

// Build returns the union of every range in the manual deny and allow lists.
// Addresses on either list are never auto blocked: allowed ones must pass and denied ones are already blocked.
func (b *builderImpl) Build(ctx context.Context, allowListID string, denyListID string) (rs waf.RangeSet, err error) {
	set := New()

	for _, ipSetID := range []string{denyListID, allowListID} {
		if ipSetID == "" {
			continue
		}

		var descriptors []string
		descriptors, err = b.gateway.Descriptors(ctx, ipSetID)
		if err != nil {
			err = fmt.Errorf("failed to read IP set %s: %w", ipSetID, err)
			return
		}

		for _, cidr := range descriptors {
			if err = set.AddCIDR(cidr); err != nil {
				err = fmt.Errorf("IP set %s holds an invalid descriptor: %w", ipSetID, err)
				return
			}
		}

		b.logger.Debug().Str("ipSet", ipSetID).Int("descriptors", len(descriptors)).Msg("Loaded do-not-block ranges")
	}

	rs = set
	return
}
