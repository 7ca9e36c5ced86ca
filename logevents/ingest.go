package logevents

import (
	"autoblock/waf"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

const maxLineSize = 1024 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

// Decoder turns log streams into events.
type Decoder struct {
	logger  zerolog.Logger
	format  Format
	metrics waf.MetricsRecorder
}

// NewDecoder creates a decoder for a log format. The metrics recorder may be nil.
func NewDecoder(logger zerolog.Logger, format Format, m waf.MetricsRecorder) *Decoder {
	return &Decoder{logger: logger, format: format, metrics: m}
}

// Format returns the log format of the decoder.
func (d *Decoder) Format() Format {
	return d.format
}

// Decode reads every line of a log stream, gunzipping it first when it is gzip compressed.
// Lines that cannot be decoded are logged and counted in skipped. Comment lines starting with "#" are ignored,
// and a CloudFront "#Version" header other than 1.0 fails the whole stream.
func (d *Decoder) Decode(r io.Reader) (events []waf.LogEvent, skipped int, err error) {
	br := bufio.NewReader(r)
	if magic, _ := br.Peek(len(gzipMagic)); bytes.Equal(magic, gzipMagic) {
		var zr *gzip.Reader
		if zr, err = gzip.NewReader(br); err != nil {
			err = fmt.Errorf("failed to open gzip stream: %w", err)
			return
		}
		defer zr.Close()
		r = zr
	} else {
		r = br
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			if err = d.checkHeader(line); err != nil {
				return
			}
			continue
		}

		event, perr := d.format.parseLine(line)
		if perr != nil {
			skipped++
			d.logger.Warn().Err(perr).Str("format", string(d.format)).Int("line", lineNumber).Msg("Skipping undecodable log line")
			continue
		}
		events = append(events, event)
	}

	if err = scanner.Err(); err != nil {
		err = fmt.Errorf("failed to read log stream: %w", err)
		return
	}

	if skipped > 0 && d.metrics != nil {
		d.metrics.ObserveDecodeErrors(string(d.format), skipped)
	}

	return
}

func (d *Decoder) checkHeader(line string) error {
	if d.format != CloudFront {
		return nil
	}

	header := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	if !strings.HasPrefix(header, "Version") {
		return nil
	}

	version := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(header, "Version"), ":"))
	if version != "1.0" {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return nil
}
