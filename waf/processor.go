package waf

import (
	"context"
	"time"
)

// Processor consumes a batch of log events.
type Processor interface {
	Name() string
	ProcessLogEvents(ctx context.Context, events []LogEvent, scope string) error
}

// Notifier delivers a human readable message to operators.
type Notifier interface {
	Notify(ctx context.Context, username string, text string) error
}

// MetricsRecorder records the outcome of runs.
type MetricsRecorder interface {
	ObserveSync(ipSetID string, violators int, result SyncResult)
	ObserveProcessor(name string, timeTaken time.Duration, err error)
	ObserveDecodeErrors(format string, count int)
}

// SyncReporter tells operators what a sync changed in an IP set.
type SyncReporter interface {
	ReportSync(ctx context.Context, processor string, result SyncResult) error
}
