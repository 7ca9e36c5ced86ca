package testutils

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a zerolog.Logger that writes every level to testing.T's log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	return NewTestLoggerAt(t, zerolog.DebugLevel)
}

// NewTestLoggerAt is NewTestLogger with a minimum level, for tests that log a lot.
func NewTestLoggerAt(t *testing.T, level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: testWriter{t}, TimeFormat: time.RFC3339, NoColor: true}
	return zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (n int, err error) {
	tw.t.Helper()
	tw.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}
