package logevents

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const cloudFrontFieldCount = 26

// ErrUnsupportedVersion is returned for CloudFront logs not in the 1.0 format.
var ErrUnsupportedVersion = errors.New("unsupported log format version")

// CloudFrontEvent is one line of a CloudFront access log.
// See https://docs.aws.amazon.com/AmazonCloudFront/latest/DeveloperGuide/AccessLogs.html#LogFileFormat.
type CloudFrontEvent struct {
	fields    []string
	timestamp time.Time
}

// ParseCloudFrontLine decodes a tab separated CloudFront log line.
func ParseCloudFrontLine(line string) (event *CloudFrontEvent, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) != cloudFrontFieldCount {
		err = fmt.Errorf("CloudFront log line has %d fields, expected %d", len(fields), cloudFrontFieldCount)
		return
	}

	ts, err := time.Parse("2006-01-02 15:04:05", fields[0]+" "+fields[1])
	if err != nil {
		err = fmt.Errorf("CloudFront log line has an invalid date or time: %w", err)
		return
	}

	event = &CloudFrontEvent{fields: fields, timestamp: ts.UTC()}
	return
}

func (e *CloudFrontEvent) ClientIP() string { return e.fields[4] }

func (e *CloudFrontEvent) TimestampMinute() string { return e.timestamp.Format(minuteLayout) }

func (e *CloudFrontEvent) Timestamp() time.Time { return e.timestamp }

func (e *CloudFrontEvent) Path() string { return e.fields[7] }

func (e *CloudFrontEvent) Method() string { return e.fields[5] }

func (e *CloudFrontEvent) StatusCode() string { return e.fields[8] }

func (e *CloudFrontEvent) TLSVersion() string { return e.fields[20] }

func (e *CloudFrontEvent) UserAgent() string { return e.fields[10] }

// EdgeLocation is the edge location that served the request, e.g. DFW3.
func (e *CloudFrontEvent) EdgeLocation() string { return e.fields[2] }

// Host is the domain name of the distribution.
func (e *CloudFrontEvent) Host() string { return e.fields[6] }

// HostHeader is the value of the Host header the viewer sent.
func (e *CloudFrontEvent) HostHeader() string { return e.fields[15] }

// Query is the query string, or "-".
func (e *CloudFrontEvent) Query() string { return e.fields[11] }

// ForwardedFor is the X-Forwarded-For header, or "-".
func (e *CloudFrontEvent) ForwardedFor() string { return e.fields[19] }

// TLSCipher is the negotiated cipher, or "-" for plain HTTP.
func (e *CloudFrontEvent) TLSCipher() string { return e.fields[21] }

// ResultType is how CloudFront classified the response, e.g. Hit or Error.
func (e *CloudFrontEvent) ResultType() string { return e.fields[13] }
