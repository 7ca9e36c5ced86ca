package ratelimit

import (
	"autoblock/ipaddresses"
	"autoblock/waf"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ProcessorName is the name the rate limiting processor reports under.
const ProcessorName = "Rate-Limiting-Processor"

// NewProcessor creates the rate limiting processor. The reporter and the metrics recorder may be nil.
func NewProcessor(logger zerolog.Logger, config waf.RateLimitConfig, store waf.ViolationStore, builder waf.RangeSetBuilder, gateway waf.IPSetGateway, reporter waf.SyncReporter, rl waf.ResultsLogger, m waf.MetricsRecorder) (p waf.Processor, err error) {
	impl, err := newProcessorWithClock(logger, config, store, builder, gateway, reporter, rl, m, time.Now)
	if err != nil {
		return
	}

	p = impl
	return
}

func newProcessorWithClock(logger zerolog.Logger, config waf.RateLimitConfig, store waf.ViolationStore, builder waf.RangeSetBuilder, gateway waf.IPSetGateway, reporter waf.SyncReporter, rl waf.ResultsLogger, m waf.MetricsRecorder, now func() time.Time) (p *processorImpl, err error) {
	policy, err := PolicyFor(config.CountingWindow)
	if err != nil {
		return
	}

	if config.AutoBlockListID == "" {
		err = fmt.Errorf("auto block IP set ID is required")
		return
	}

	p = &processorImpl{
		logger:        logger.With().Str("processor", ProcessorName).Logger(),
		config:        config,
		policy:        policy,
		reconciler:    NewReconciler(config, now),
		store:         store,
		builder:       builder,
		gateway:       gateway,
		reporter:      reporter,
		resultsLogger: rl,
		metrics:       m,
		now:           now,
	}
	return
}

type processorImpl struct {
	logger        zerolog.Logger
	config        waf.RateLimitConfig
	policy        CountingPolicy
	reconciler    *Reconciler
	store         waf.ViolationStore
	builder       waf.RangeSetBuilder
	gateway       waf.IPSetGateway
	reporter      waf.SyncReporter
	resultsLogger waf.ResultsLogger
	metrics       waf.MetricsRecorder
	now           func() time.Time
}

func (p *processorImpl) Name() string {
	return ProcessorName
}

// ProcessLogEvents runs one reconciliation. Violation state is saved before the remote IP set is touched,
// and any error before the sync leaves the remote IP set as it was.
func (p *processorImpl) ProcessLogEvents(ctx context.Context, events []waf.LogEvent, scope string) (err error) {
	logger := p.logger.With().Str("bucket", scope).Str("ipSet", p.config.AutoBlockListID).Logger()

	counts := Count(events, p.policy)
	violators := blockable(logger, Identify(counts, p.policy, p.config.RequestRateLimit, p.now()))
	logger.Info().Int("events", len(events)).Int("violators", len(violators)).Msg("Identified rate limit violators")

	persisted, err := p.store.Load(ctx, scope)
	if err != nil {
		err = fmt.Errorf("failed to load violation state: %w", err)
		return
	}

	doNotBlock, err := p.builder.Build(ctx, p.config.ManualAllowListID, p.config.ManualDenyListID)
	if err != nil {
		err = fmt.Errorf("failed to build do-not-block ranges: %w", err)
		return
	}

	reconciled, err := p.reconciler.Reconcile(violators, persisted, doNotBlock)
	if err != nil {
		return
	}

	if err = p.store.Save(ctx, scope, reconciled); err != nil {
		err = fmt.Errorf("failed to save violation state: %w", err)
		return
	}

	result, err := p.gateway.Sync(ctx, p.config.AutoBlockListID, reconciled.IPs())
	if err != nil {
		err = fmt.Errorf("failed to sync IP set %s: %w", p.config.AutoBlockListID, err)
		return
	}

	logger.Info().
		Int("blocked", len(reconciled)).
		Int("added", len(result.Added)).
		Int("removed", len(result.Removed)).
		Msg("Synced auto block IP set")

	if p.resultsLogger != nil {
		p.resultsLogger.IPSetSynced(p.config.Environment, p.config.AutoBlockListID, result)
	}

	if p.metrics != nil {
		p.metrics.ObserveSync(p.config.AutoBlockListID, len(violators), result)
	}

	if p.reporter != nil {
		if rerr := p.reporter.ReportSync(ctx, ProcessorName, result); rerr != nil {
			logger.Warn().Err(rerr).Msg("Failed to report sync summary")
		}
	}

	return
}

// blockable drops violators whose client address cannot go into an IPv4 IP set, such as IPv6 clients.
func blockable(logger zerolog.Logger, violators waf.ViolatorMap) waf.ViolatorMap {
	for ip, rec := range violators {
		if _, err := ipaddresses.ParseIPAddress(ip); err != nil {
			logger.Debug().Str("ip", ip).Int("maxRate", rec.MaxRate).Msg("Skipping violator that is not an IPv4 address")
			delete(violators, ip)
		}
	}
	return violators
}
