package logevents

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// albLinePattern is the Athena pattern from
// https://docs.aws.amazon.com/athena/latest/ug/application-load-balancer-logs.html.
var albLinePattern = regexp.MustCompile(`^([^ ]*) ([^ ]*) ([^ ]*) ([^ ]*):([0-9]*) ([^ ]*)[:-]([0-9]*) ([-.0-9]*) ([-.0-9]*) ([-.0-9]*) (|[-0-9]*) (-|[-0-9]*) ([-0-9]*) ([-0-9]*) "([^ ]*) ([^ ]*) (- |[^ ]*)" ("[^"]*") ([A-Z0-9-]+) ([A-Za-z0-9.-]*) ([^ ]*) (.*) (.*) (.*)$`)

const albFieldCount = 24

// albRequestPattern splits the URL of the request field, e.g. "https://example.com:443/dashboard".
var albRequestPattern = regexp.MustCompile(`^(?P<protocol>.*)://(?P<host>.*):(?P<port>\d*)(?P<uri>/.*)$`)

// ALBEvent is one line of an application load balancer access log.
// See https://docs.aws.amazon.com/elasticloadbalancing/latest/application/load-balancer-access-logs.html.
type ALBEvent struct {
	fields    []string
	timestamp time.Time

	protocol string
	host     string
	port     string
	uri      string
}

// ParseALBLine decodes a space separated load balancer log line.
func ParseALBLine(line string) (event *ALBEvent, err error) {
	m := albLinePattern.FindStringSubmatch(line)
	if m == nil || len(m)-1 != albFieldCount {
		err = fmt.Errorf("ALB log line does not match the access log format")
		return
	}

	ts, err := time.Parse(time.RFC3339Nano, m[2])
	if err != nil {
		err = fmt.Errorf("ALB log line has an invalid time: %w", err)
		return
	}

	event = &ALBEvent{fields: m[1:], timestamp: ts.UTC()}

	if r := albRequestPattern.FindStringSubmatch(event.URL()); r != nil {
		event.protocol = r[1]
		event.host = r[2]
		event.port = r[3]
		event.uri = r[4]
	}

	return
}

func (e *ALBEvent) ClientIP() string { return e.fields[3] }

func (e *ALBEvent) TimestampMinute() string { return e.timestamp.Format(minuteLayout) }

func (e *ALBEvent) Timestamp() time.Time { return e.timestamp }

// Path is the URI of the request, e.g. "/dashboard".
func (e *ALBEvent) Path() string { return e.uri }

func (e *ALBEvent) Method() string { return e.fields[14] }

// StatusCode is the status code the load balancer answered with.
func (e *ALBEvent) StatusCode() string { return e.fields[10] }

func (e *ALBEvent) TLSVersion() string { return e.fields[19] }

func (e *ALBEvent) UserAgent() string { return strings.Trim(e.fields[17], `"`) }

// RequestType is http, https, h2, ws or wss.
func (e *ALBEvent) RequestType() string { return e.fields[0] }

// LoadBalancer is the resource ID of the load balancer.
func (e *ALBEvent) LoadBalancer() string { return e.fields[2] }

// ClientPort is the source port of the client.
func (e *ALBEvent) ClientPort() string { return e.fields[4] }

// TargetStatusCode is the status code of the target response, or "-".
func (e *ALBEvent) TargetStatusCode() string { return e.fields[11] }

// URL is the full request URL.
func (e *ALBEvent) URL() string { return e.fields[15] }

// Protocol is the scheme of the request URL.
func (e *ALBEvent) Protocol() string { return e.protocol }

// Host is the host name the request URL was sent to.
func (e *ALBEvent) Host() string { return e.host }

// Port is the port of the request URL.
func (e *ALBEvent) Port() string { return e.port }

// HTTPVersion is the HTTP version of the request, e.g. HTTP/2.0.
func (e *ALBEvent) HTTPVersion() string { return e.fields[16] }

// TLSCipher is the negotiated cipher, or "-".
func (e *ALBEvent) TLSCipher() string { return e.fields[18] }

// TargetGroup is the ARN of the target group.
func (e *ALBEvent) TargetGroup() string { return e.fields[20] }

// TraceID is the value of the X-Amzn-Trace-Id header.
func (e *ALBEvent) TraceID() string { return strings.Trim(e.fields[21], `"`) }
