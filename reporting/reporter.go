package reporting

import (
	"autoblock/waf"
	"context"

	"github.com/rs/zerolog"
)

// NewReporter creates a sync reporter. Every argument after the environment may be nil.
func NewReporter(logger zerolog.Logger, environment string, n waf.Notifier, hostnames HostnameResolver, countries CountryLookup) waf.SyncReporter {
	return &reporterImpl{
		logger:      logger,
		environment: environment,
		notifier:    n,
		hostnames:   hostnames,
		countries:   countries,
	}
}

type reporterImpl struct {
	logger      zerolog.Logger
	environment string
	notifier    waf.Notifier
	hostnames   HostnameResolver
	countries   CountryLookup
}

// ReportSync logs the summary of a sync and sends it to the notifier. Syncs that changed nothing are not reported.
func (r *reporterImpl) ReportSync(ctx context.Context, processor string, result waf.SyncResult) (err error) {
	if !result.Changed() {
		r.logger.Info().Str("processor", processor).Msg("Auto block list unchanged, nothing to report")
		return
	}

	text := Summary(r.environment, result, r.details(ctx, result.Added))
	r.logger.Info().Str("processor", processor).Msg(text)

	if r.notifier != nil {
		err = r.notifier.Notify(ctx, processor, text)
	}
	return
}

func (r *reporterImpl) details(ctx context.Context, ips []string) map[string]string {
	details := make(map[string]string, len(ips))
	for _, ip := range ips {
		var d string
		if r.hostnames != nil {
			d = r.hostnames.LookupHostname(ctx, ip)
		}
		if r.countries != nil {
			if c := r.countries.Country(ip); c != "" {
				if d != "" {
					d += ", "
				}
				d += c
			}
		}
		details[ip] = d
	}
	return details
}
