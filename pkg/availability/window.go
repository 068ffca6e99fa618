package availability

import (
	"fmt"
	"time"
)

const (
	// ISODate is the calendar-date layout used across the upstream API.
	ISODate = "2006-01-02"

	// MaxWindowDays caps a single upstream query; longer requested ranges
	// are split before fetching. The Normalizer itself is window-agnostic.
	MaxWindowDays = 90
)

// Window is one fetchable [Start, End) date slice.
type Window struct {
	Start string
	End   string
}

// ParseISODate parses a strict YYYY-MM-DD calendar date in UTC.
func ParseISODate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(ISODate, raw, time.UTC)
	if err != nil || t.Format(ISODate) != raw {
		return time.Time{}, fmt.Errorf("invalid calendar date %q, want YYYY-MM-DD", raw)
	}
	return t, nil
}

// ParseDateRange validates a [start, end) range: both strict ISO dates, with
// start strictly before end.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	s, err := ParseISODate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseISODate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !s.Before(e) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s must be before end date %s", start, end)
	}
	return s, e, nil
}

// SplitWindows partitions [start, end) into successive windows of at most
// maxDays days. Inputs must already be validated.
func SplitWindows(start, end string, maxDays int) []Window {
	if maxDays <= 0 {
		maxDays = MaxWindowDays
	}
	s, e, err := ParseDateRange(start, end)
	if err != nil {
		return nil
	}

	var out []Window
	for cur := s; cur.Before(e); {
		next := cur.AddDate(0, 0, maxDays)
		if next.After(e) {
			next = e
		}
		out = append(out, Window{
			Start: cur.Format(ISODate),
			End:   next.Format(ISODate),
		})
		cur = next
	}
	return out
}

// DatesBetween lists every date in [start, end) ascending.
func DatesBetween(start, end time.Time) []string {
	var out []string
	for cur := start; cur.Before(end); cur = cur.AddDate(0, 0, 1) {
		out = append(out, cur.Format(ISODate))
	}
	return out
}
