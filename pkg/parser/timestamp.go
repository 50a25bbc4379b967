package parser

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the fixed lexical layout of an event's creation time.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses an event creation time to second precision.
// Fractional seconds are accepted and dropped. RFC 3339 is accepted as a
// fallback since XML exports render SystemTime that way.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		var rfcErr error
		ts, rfcErr = time.Parse(time.RFC3339Nano, s)
		if rfcErr != nil {
			return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
	}

	return ts.UTC().Truncate(time.Second), nil
}
