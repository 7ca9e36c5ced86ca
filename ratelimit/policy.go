package ratelimit

import (
	"autoblock/waf"
	"fmt"
	"strings"
)

const keySeparator = "--"

// CountingPolicy decides which requests are counted together.
type CountingPolicy interface {
	// Key returns the counting bucket of a log event.
	Key(event waf.LogEvent) string

	// IP returns the client IP a counting bucket belongs to.
	IP(key string) string
}

// PolicyFor returns the counting policy of a counting window.
func PolicyFor(window waf.CountingWindow) (policy CountingPolicy, err error) {
	switch window {
	case waf.PerMinute:
		policy = perMinutePolicy{}
	case waf.PerBatch:
		policy = perBatchPolicy{}
	default:
		err = fmt.Errorf("unknown counting window: %q", window)
	}
	return
}

// perMinutePolicy counts per IP per calendar minute, keyed "2006-01-02--15:04--1.2.3.4".
type perMinutePolicy struct{}

func (perMinutePolicy) Key(event waf.LogEvent) string {
	return event.TimestampMinute() + keySeparator + event.ClientIP()
}

func (perMinutePolicy) IP(key string) string {
	i := strings.LastIndex(key, keySeparator)
	if i < 0 {
		return key
	}
	return key[i+len(keySeparator):]
}

// perBatchPolicy counts per IP over the whole batch.
type perBatchPolicy struct{}

func (perBatchPolicy) Key(event waf.LogEvent) string {
	return event.ClientIP()
}

func (perBatchPolicy) IP(key string) string {
	return key
}
