package logging

import (
	"autoblock/waf"

	"github.com/rs/zerolog"
)

// NewZerologResultsLogger creates a results logger that writes the audit entries to the process log.
func NewZerologResultsLogger(logger zerolog.Logger) waf.ResultsLogger {
	return &zerologResultsLogger{logger: logger}
}

type zerologResultsLogger struct {
	logger zerolog.Logger
}

func (l *zerologResultsLogger) IPSetSynced(environment string, ipSetID string, result waf.SyncResult) {
	l.logger.Info().
		Str("operationName", operationIPSetSynced).
		Str("environment", environment).
		Str("ipSet", ipSetID).
		Strs("added", nonNil(result.Added)).
		Strs("removed", nonNil(result.Removed)).
		Int("unchanged", len(result.Unchanged)).
		Msg("IP set synced")
}

func (l *zerologResultsLogger) ProcessorFailed(environment string, processor string, scope string, err error) {
	l.logger.Error().
		Str("operationName", operationProcessorFailed).
		Str("environment", environment).
		Str("processor", processor).
		Str("scope", scope).
		Err(err).
		Msg("Log processor failed")
}
