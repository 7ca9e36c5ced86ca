package violationstore

import (
	"autoblock/waf"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// storedRecord is the persisted form of a violation record, with the time in epoch milliseconds.
type storedRecord struct {
	Date    int64 `json:"date"`
	MaxRate int   `json:"max_rate"`
}

// Encode serializes a violator map as {"<ip>": {"date": <epoch millis>, "max_rate": <int>}}.
func Encode(violators waf.ViolatorMap) (data []byte, err error) {
	stored := make(map[string]storedRecord, len(violators))
	for ip, rec := range violators {
		stored[ip] = storedRecord{Date: rec.Time.UnixMilli(), MaxRate: rec.MaxRate}
	}

	data, err = json.Marshal(stored)
	return
}

// Decode parses the output of Encode. Times are returned in UTC.
func Decode(data []byte) (violators waf.ViolatorMap, err error) {
	var stored map[string]storedRecord
	if err = json.Unmarshal(data, &stored); err != nil {
		err = fmt.Errorf("failed to decode violation state: %w", err)
		return
	}

	violators = make(waf.ViolatorMap, len(stored))
	for ip, rec := range stored {
		violators[ip] = waf.ViolationRecord{Time: time.UnixMilli(rec.Date).UTC(), MaxRate: rec.MaxRate}
	}
	return
}
