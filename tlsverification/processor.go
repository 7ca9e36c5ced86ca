package tlsverification

import (
	"autoblock/waf"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ProcessorName is the name the TLS verification processor reports under.
const ProcessorName = "Tls-Verification-Processor"

const userAgentReportLength = 30

// DefaultAcceptableVersions are the TLS versions not reported. "-" is plain HTTP, which never reaches the
// service and is ignored.
var DefaultAcceptableVersions = []string{"TLSv1.2", "-"}

// Options tunes the processor.
type Options struct {
	// AcceptableVersions replaces DefaultAcceptableVersions when not empty.
	AcceptableVersions []string

	// SuppressedPaths are request paths never reported.
	SuppressedPaths []string
}

// NewProcessor creates a processor reporting requests made over a TLS version that is not acceptable.
// The notifier may be nil.
func NewProcessor(logger zerolog.Logger, environment string, n waf.Notifier, opts Options) waf.Processor {
	versions := opts.AcceptableVersions
	if len(versions) == 0 {
		versions = DefaultAcceptableVersions
	}

	p := &processorImpl{
		logger:          logger.With().Str("processor", ProcessorName).Logger(),
		environment:     environment,
		notifier:        n,
		acceptable:      toSet(versions),
		suppressedPaths: toSet(opts.SuppressedPaths),
	}
	return p
}

type processorImpl struct {
	logger          zerolog.Logger
	environment     string
	notifier        waf.Notifier
	acceptable      map[string]bool
	suppressedPaths map[string]bool
}

func (p *processorImpl) Name() string {
	return ProcessorName
}

func (p *processorImpl) ProcessLogEvents(ctx context.Context, events []waf.LogEvent, scope string) (err error) {
	var offending []waf.LogEvent
	for _, e := range events {
		if p.acceptable[e.TLSVersion()] || p.suppressedPaths[e.Path()] {
			continue
		}
		offending = append(offending, e)
	}

	if len(offending) == 0 {
		p.logger.Info().Str("bucket", scope).Msg("No requests found with TLS versions not in acceptable version list")
		return
	}

	text := p.report(offending)
	p.logger.Info().Str("bucket", scope).Int("requests", len(offending)).Msg(text)

	if p.notifier != nil {
		if err = p.notifier.Notify(ctx, ProcessorName, text); err != nil {
			err = fmt.Errorf("failed to send TLS verification report: %w", err)
		}
	}
	return
}

func (p *processorImpl) report(events []waf.LogEvent) string {
	var sb strings.Builder
	sb.WriteString("Log Event Handler - TLS Verification Processor run summary\n")
	sb.WriteString("Running Environment: " + p.environment + "\n")
	sb.WriteString("Ignoring Paths: [" + strings.Join(sortedKeys(p.suppressedPaths), ", ") + "]\n")

	for _, e := range events {
		fmt.Fprintf(&sb, "TLS Version: %s, Path: %s, IP: %s, User Agent: %s\n",
			e.TLSVersion(), e.Path(), e.ClientIP(), truncate(e.UserAgent(), userAgentReportLength))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
