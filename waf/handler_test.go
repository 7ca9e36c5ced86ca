package waf

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogHandlerRunsAllProcessors(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	p1 := &mockProcessor{name: "first"}
	p2 := &mockProcessor{name: "second"}
	rl := &mockResultsLogger{}
	h := NewLogHandler(zerolog.Nop(), "test", nil, []Processor{p1, p2}, nil, rl, nil)
	batch := LogBatch{Scope: "bucket", Events: []LogEvent{&mockLogEvent{ip: "1.1.1.1"}}}

	// Act
	failed := h.HandleBatch(context.Background(), batch)

	// Assert
	assert.Empty(failed)
	assert.Equal(1, p1.called)
	assert.Equal(1, p2.called)
	assert.Equal("bucket", p1.lastScope)
	assert.Len(p2.lastEvents, 1)
	assert.Equal(0, rl.failures)
}

func TestLogHandlerIsolatesFailingProcessor(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	failing := &mockProcessor{name: "failing", err: errors.New("boom")}
	panicking := &mockProcessor{name: "panicking", panicMsg: "kaboom"}
	healthy := &mockProcessor{name: "healthy"}
	rl := &mockResultsLogger{}
	n := &mockNotifier{}
	m := &mockMetricsRecorder{}
	h := NewLogHandler(zerolog.Nop(), "test", nil, []Processor{failing, panicking, healthy}, n, rl, m)

	// Act
	failed := h.HandleBatch(context.Background(), LogBatch{Scope: "bucket"})

	// Assert
	assert.Equal([]string{"failing", "panicking"}, failed)
	assert.Equal(1, healthy.called)
	assert.Equal(2, rl.failures)
	assert.Len(n.messages, 2)
	assert.Contains(n.messages[0], "Failed to run log processor failing, env: test reason: boom")
	assert.Contains(n.messages[1], "kaboom")
	assert.Equal(3, m.processorRuns)
	assert.Equal(2, m.processorErrors)
}

func TestLogHandlerHandleLogObjects(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	p := &mockProcessor{name: "p"}
	reader := &mockBatchReader{batches: []LogBatch{{Scope: "a"}, {Scope: "b"}}}
	h := NewLogHandler(zerolog.Nop(), "test", reader, []Processor{p}, nil, &mockResultsLogger{}, nil)

	// Act
	err := h.HandleLogObjects(context.Background(), []string{"s3://a/x.gz", "s3://b/y.gz"})

	// Assert
	assert.Nil(err)
	assert.Equal(2, p.called)
	assert.Equal("b", p.lastScope)
	assert.Equal([]string{"s3://a/x.gz", "s3://b/y.gz"}, reader.uris)
}

func TestLogHandlerHandleLogObjectsReadError(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	p := &mockProcessor{name: "p"}
	reader := &mockBatchReader{err: errors.New("no such bucket")}
	h := NewLogHandler(zerolog.Nop(), "test", reader, []Processor{p}, nil, &mockResultsLogger{}, nil)

	// Act
	err := h.HandleLogObjects(context.Background(), []string{"s3://a/x.gz"})

	// Assert
	assert.Error(err)
	assert.Equal(0, p.called)
}

type mockLogEvent struct{ ip string }

func (e *mockLogEvent) ClientIP() string        { return e.ip }
func (e *mockLogEvent) TimestampMinute() string { return "2017-06-30--01:42" }
func (e *mockLogEvent) Timestamp() time.Time    { return time.Date(2017, 6, 30, 1, 42, 39, 0, time.UTC) }
func (e *mockLogEvent) Path() string            { return "/" }
func (e *mockLogEvent) Method() string          { return "GET" }
func (e *mockLogEvent) StatusCode() string      { return "200" }
func (e *mockLogEvent) TLSVersion() string      { return "TLSv1.2" }
func (e *mockLogEvent) UserAgent() string       { return "curl" }

type mockProcessor struct {
	name       string
	err        error
	panicMsg   string
	called     int
	lastScope  string
	lastEvents []LogEvent
}

func (p *mockProcessor) Name() string { return p.name }

func (p *mockProcessor) ProcessLogEvents(ctx context.Context, events []LogEvent, scope string) error {
	p.called++
	p.lastScope = scope
	p.lastEvents = events
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	return p.err
}

type mockBatchReader struct {
	batches []LogBatch
	err     error
	uris    []string
}

func (r *mockBatchReader) ReadBatches(ctx context.Context, uris []string) ([]LogBatch, error) {
	r.uris = uris
	return r.batches, r.err
}

type mockResultsLogger struct {
	failures int
	syncs    int
}

func (l *mockResultsLogger) IPSetSynced(environment string, ipSetID string, result SyncResult) {
	l.syncs++
}

func (l *mockResultsLogger) ProcessorFailed(environment string, processor string, scope string, err error) {
	l.failures++
}

type mockNotifier struct {
	messages []string
}

func (n *mockNotifier) Notify(ctx context.Context, username string, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

type mockMetricsRecorder struct {
	processorRuns   int
	processorErrors int
}

func (m *mockMetricsRecorder) ObserveSync(ipSetID string, violators int, result SyncResult) {}

func (m *mockMetricsRecorder) ObserveProcessor(name string, timeTaken time.Duration, err error) {
	m.processorRuns++
	if err != nil {
		m.processorErrors++
	}
}

func (m *mockMetricsRecorder) ObserveDecodeErrors(format string, count int) {}
