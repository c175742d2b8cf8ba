package exam

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is the canonical wire form: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidTimestamp is returned for date-time input that is not a full instant.
var ErrInvalidTimestamp = errors.New("invalid date-time")

// FormatTimestamp renders a stored timestamp in canonical ISO-8601 form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// ParseTimestamp converts an ISO-8601 instant into the store's native
// timestamp. Date-only input and sub-millisecond precision are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	if t.Nanosecond()%int(time.Millisecond) != 0 {
		return time.Time{}, fmt.Errorf("%w: %q is finer than millisecond precision", ErrInvalidTimestamp, s)
	}
	return t.UTC(), nil
}
