package waf

import (
	"context"
	"time"
)

// LogEvent is one decoded access log record.
type LogEvent interface {
	ClientIP() string
	// TimestampMinute is the UTC date and time of the request truncated to the minute, formatted as "2006-01-02--15:04".
	TimestampMinute() string
	Timestamp() time.Time
	Path() string
	Method() string
	StatusCode() string
	TLSVersion() string
	UserAgent() string
}

// LogBatch is a set of events processed as one unit.
type LogBatch struct {
	// Scope identifies where the violation state for these events is kept, i.e. the bucket the logs came from.
	Scope string

	// Sources are the log objects the events were read from.
	Sources []string

	Events []LogEvent
}

// LogBatchReader reads and decodes log objects into batches, one per object.
type LogBatchReader interface {
	ReadBatches(ctx context.Context, uris []string) ([]LogBatch, error)
}
