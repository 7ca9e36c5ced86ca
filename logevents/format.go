package logevents

import (
	"autoblock/waf"
	"fmt"
	"strings"
)

// Format is an access log format.
type Format string

const (
	// CloudFront is the CloudFront standard access log format (version 1.0).
	CloudFront Format = "cloudfront"

	// ALB is the application load balancer access log format.
	ALB Format = "alb"
)

const minuteLayout = "2006-01-02--15:04"

// ParseFormat returns the format named s.
func ParseFormat(s string) (f Format, err error) {
	switch Format(strings.ToLower(s)) {
	case CloudFront:
		f = CloudFront
	case ALB:
		f = ALB
	default:
		err = fmt.Errorf("unknown log format: %q", s)
	}
	return
}

// Suffix is the suffix of the object keys holding logs of this format. Other keys are skipped.
func (f Format) Suffix() string {
	if f == ALB {
		return ".log.gz"
	}
	return ".gz"
}

// DefaultCountingWindow is how requests of this format are counted unless configured otherwise.
// CloudFront logs are counted per minute. Load balancer logs are counted per batch.
func (f Format) DefaultCountingWindow() waf.CountingWindow {
	if f == ALB {
		return waf.PerBatch
	}
	return waf.PerMinute
}

func (f Format) parseLine(line string) (event waf.LogEvent, err error) {
	if f == ALB {
		var e *ALBEvent
		if e, err = ParseALBLine(line); err == nil {
			event = e
		}
		return
	}

	var e *CloudFrontEvent
	if e, err = ParseCloudFrontLine(line); err == nil {
		event = e
	}
	return
}
