package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the process logger. Pretty output is meant for terminals, the default is JSON lines on stderr.
func NewLogger(level string, pretty bool) (zerolog.Logger, error) {
	return newLogger(os.Stderr, level, pretty)
}

func newLogger(out io.Writer, level string, pretty bool) (logger zerolog.Logger, err error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		err = fmt.Errorf("invalid log level %q: %w", level, err)
		return
	}

	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	w := out
	if pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger = zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger()
	return
}
