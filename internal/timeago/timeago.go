// Package timeago renders publication timestamps as coarse relative strings
// such as "3 days ago".
package timeago

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	daysPerWeek      = 7
)

// JustNow is returned for timestamps less than a minute old.
const JustNow = "Just now"

// ErrFutureTimestamp is returned when the timestamp lies after the reference time.
var ErrFutureTimestamp = errors.New("timestamp is in the future")

// layouts accepted by Parse, tried in order. Fractional seconds are accepted
// by time.Parse after the seconds field even though no layout names them.
var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse parses an ISO-8601 date or date-time. Timestamps without a zone are
// read as UTC; zoned timestamps are normalised to UTC.
func Parse(iso string) (time.Time, error) {
	s := strings.TrimSpace(iso)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported ISO-8601 form", iso)
}

// Since formats the time elapsed between iso and now.
func Since(iso string, now time.Time) (string, error) {
	t, err := Parse(iso)
	if err != nil {
		return "", err
	}
	delta := now.Unix() - t.Unix()
	if delta < 0 {
		return "", fmt.Errorf("%w: %s", ErrFutureTimestamp, iso)
	}
	return Format(delta), nil
}

// Format buckets a non-negative number of elapsed seconds. Days are rounded
// half-to-even before the week and day buckets are considered, so 12 hours
// still reads as hours while 13 hours reads as "1 day ago".
func Format(deltaSeconds int64) string {
	days := int64(math.RoundToEven(float64(deltaSeconds) / secondsPerDay))

	switch {
	case days > daysPerWeek:
		return plural(days/daysPerWeek, "week")
	case days > 0:
		return plural(days, "day")
	case deltaSeconds >= secondsPerHour:
		return plural(deltaSeconds/secondsPerHour, "hour")
	case deltaSeconds >= secondsPerMinute:
		return plural(deltaSeconds/secondsPerMinute, "minute")
	default:
		return JustNow
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Formatter formats timestamps relative to a Clock.
type Formatter struct {
	clock Clock
}

// NewFormatter creates a Formatter. A nil clock uses SystemClock.
func NewFormatter(clock Clock) *Formatter {
	if clock == nil {
		clock = SystemClock
	}
	return &Formatter{clock: clock}
}

// Format formats iso relative to the formatter's clock.
func (f *Formatter) Format(iso string) (string, error) {
	return Since(iso, f.clock.Now())
}
