package waf

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const handlerNotifierUsername = "Log-Event-Handler"

// LogHandler is the top level interface: it reads log objects and runs every processor on them.
type LogHandler interface {
	HandleLogObjects(ctx context.Context, uris []string) error
	HandleBatch(ctx context.Context, batch LogBatch) (failed []string)
}

type logHandlerImpl struct {
	logger        zerolog.Logger
	environment   string
	reader        LogBatchReader
	processors    []Processor
	notifier      Notifier
	resultsLogger ResultsLogger
	metrics       MetricsRecorder
}

// NewLogHandler creates a log handler. The notifier and the metrics recorder may be nil.
func NewLogHandler(logger zerolog.Logger, environment string, reader LogBatchReader, processors []Processor, n Notifier, rl ResultsLogger, m MetricsRecorder) LogHandler {
	return &logHandlerImpl{
		logger:        logger,
		environment:   environment,
		reader:        reader,
		processors:    processors,
		notifier:      n,
		resultsLogger: rl,
		metrics:       m,
	}
}

func (h *logHandlerImpl) HandleLogObjects(ctx context.Context, uris []string) (err error) {
	batches, err := h.reader.ReadBatches(ctx, uris)
	if err != nil {
		err = fmt.Errorf("failed to read log objects: %w", err)
		return
	}

	for _, batch := range batches {
		h.HandleBatch(ctx, batch)
	}

	return
}

// HandleBatch runs every processor on the batch. A failing processor does not prevent the others from running.
func (h *logHandlerImpl) HandleBatch(ctx context.Context, batch LogBatch) (failed []string) {
	logger := h.logger.With().Str("scope", batch.Scope).Logger()
	logger.Info().Strs("sources", batch.Sources).Int("events", len(batch.Events)).Msg("Processing log batch")

	for _, p := range h.processors {
		err := h.runProcessor(ctx, p, batch)
		if err == nil {
			continue
		}

		failed = append(failed, p.Name())
		logger.Error().Err(err).Str("processor", p.Name()).Msg("Failed to run log processor")
		h.resultsLogger.ProcessorFailed(h.environment, p.Name(), batch.Scope, err)

		if h.notifier != nil {
			text := fmt.Sprintf("Failed to run log processor %s, env: %s reason: %v", p.Name(), h.environment, err)
			if nerr := h.notifier.Notify(ctx, handlerNotifierUsername, text); nerr != nil {
				logger.Warn().Err(nerr).Str("processor", p.Name()).Msg("Failed to send processor failure notification")
			}
		}
	}

	return
}

func (h *logHandlerImpl) runProcessor(ctx context.Context, p Processor, batch LogBatch) (err error) {
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panicked: %v", r)
		}
		if h.metrics != nil {
			h.metrics.ObserveProcessor(p.Name(), time.Since(startTime), err)
		}
	}()

	err = p.ProcessLogEvents(ctx, batch.Events, batch.Scope)
	return
}
