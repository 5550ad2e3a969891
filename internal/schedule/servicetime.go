package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is returned for a malformed HH:MM:SS value
var ErrInvalidTime = errors.New("invalid service time")

// DateKeyLayout is the GTFS YYYYMMDD date layout
const DateKeyLayout = "20060102"

// ParseServiceTime converts an HH:MM:SS string into seconds since the start
// of the service day. Hours may exceed 23 for trips running past midnight.
func ParseServiceTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	var fields [3]int
	for i, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
		}
		fields[i] = v
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

// FormatServiceTime converts seconds since service-day start to HH:MM:SS
func FormatServiceTime(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// DateKey returns the YYYYMMDD key of t's calendar date in t's own location
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYYMMDD key into midnight UTC of that date.
// Only the calendar fields of the result are meaningful.
func ParseDateKey(key string) (time.Time, error) {
	d, err := time.Parse(DateKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return d, nil
}

// ServiceDayStart returns the instant service times on the given date are
// measured from: noon minus twelve hours, which differs from midnight on
// daylight-saving transition days.
func ServiceDayStart(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, loc).Add(-12 * time.Hour)
}

// ServiceInstant anchors a service time on the calendar date of dateKey
func ServiceInstant(dateKey string, seconds int, loc *time.Location) (time.Time, error) {
	d, err := ParseDateKey(dateKey)
	if err != nil {
		return time.Time{}, err
	}
	start := ServiceDayStart(d.Year(), d.Month(), d.Day(), loc)
	return start.Add(time.Duration(seconds) * time.Second), nil
}
