package screentime

import (
	"fmt"
	"strings"
	"time"
)

// Bound selects how a bare YYYY-MM-DD date is resolved.
type Bound int

const (
	// StartOfDay resolves a bare date to midnight UTC.
	StartOfDay Bound = iota
	// EndOfDay resolves a bare date to the last nanosecond of that day (UTC),
	// so an inclusive upper bound covers the whole day.
	EndOfDay
)

// ParseInstant parses an RFC 3339 timestamp or a bare date. An empty string
// yields nil. A space where the offset sign belongs is read as '+', since an
// unencoded '+' in a query string decodes to a space.
func ParseInstant(raw, field string, bound Bound) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, strings.Replace(raw, " ", "+", 1)); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if bound == EndOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &t, nil
	}
	return nil, &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%q is not an RFC 3339 timestamp or YYYY-MM-DD date (encode '+' as %%2B)", raw),
	}
}
