package logging

import (
	"path/filepath"
	"time"

	"autoblock/waf"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultFileName is the audit log file name used when none is configured.
const DefaultFileName = "autoblock_audit.log"

// FileResultsLogger writes one JSON line per blocklist change or processor failure.
type FileResultsLogger interface {
	waf.ResultsLogger
	Close() error
}

type filelogResultsLogger struct {
	file         LogFile
	logger       zerolog.Logger
	now          func() time.Time
	writelogline chan []byte
	writeDone    chan bool
}

// NewFileResultsLogger creates a results logger appending to path. The parent directory is created when missing.
func NewFileResultsLogger(logger zerolog.Logger, fileSystem LogFileSystem, path string) (FileResultsLogger, error) {
	r := &filelogResultsLogger{logger: logger, now: time.Now}

	dir := filepath.Dir(path)
	err := fileSystem.MkDir(dir)
	if err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create the directory while initializing")
		return nil, err
	}

	r.file, err = fileSystem.Open(path)
	if err != nil {
		logger.Error().Err(err).Str("file", path).Msg("Failed to open the file at initiation")
		return nil, err
	}

	r.writelogline = make(chan []byte)
	r.writeDone = make(chan bool)
	go func() {
		for v := range r.writelogline {
			if err := r.file.Append(append(v, '\n')); err != nil {
				r.logger.Error().Err(err).Str("file", path).Msg("Failed to append to results log")
			}
			r.writeDone <- true
		}
	}()

	return r, nil
}

func (l *filelogResultsLogger) IPSetSynced(environment string, ipSetID string, result waf.SyncResult) {
	lg := &ipSetSyncedLogEntry{
		Time:          l.now().UTC().Format(time.RFC3339),
		OperationName: operationIPSetSynced,
		Category:      categoryAudit,
		Properties: ipSetSyncedLogEntryProperty{
			Environment: environment,
			IPSetID:     ipSetID,
			Added:       nonNil(result.Added),
			Removed:     nonNil(result.Removed),
			Unchanged:   len(result.Unchanged),
		},
	}

	l.write(lg)
}

func (l *filelogResultsLogger) ProcessorFailed(environment string, processor string, scope string, err error) {
	var msg string
	if err != nil {
		msg = err.Error()
	}

	lg := &processorFailedLogEntry{
		Time:          l.now().UTC().Format(time.RFC3339),
		OperationName: operationProcessorFailed,
		Category:      categoryAudit,
		Properties: processorFailedLogEntryProperty{
			Environment: environment,
			Processor:   processor,
			Scope:       scope,
			Message:     msg,
		},
	}

	l.write(lg)
}

func (l *filelogResultsLogger) write(entry interface{}) {
	bb, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error().Err(err).Msg("Error while marshaling JSON results log")
		return
	}

	l.writelogline <- bb
	<-l.writeDone
}

// Close stops the writer and closes the file. The logger must not be used afterwards.
func (l *filelogResultsLogger) Close() error {
	close(l.writelogline)
	return l.file.Close()
}
