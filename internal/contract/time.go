package contract

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// unitPattern lists the human readable units accepted for relative dates and durations.
const unitPattern = `(year|month|week|day|hour|minute)s?`

var (
	relativeTimeRe = regexp.MustCompile(`^(\d+)\s+` + unitPattern + `\s+ago$`)
	durationRe     = regexp.MustCompile(`^(\d+)\s*` + unitPattern + `$`)
)

// absoluteLayouts are accepted for --start and --end, most specific first.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// shiftBack moves now back by value units, calendar-aware for years and months.
func shiftBack(now time.Time, value int, unit string) time.Time {
	switch unit {
	case "year":
		return now.AddDate(-value, 0, 0)
	case "month":
		return now.AddDate(0, -value, 0)
	case "week":
		return now.AddDate(0, 0, -7*value)
	case "day":
		return now.AddDate(0, 0, -value)
	case "hour":
		return now.Add(time.Duration(-value) * time.Hour)
	default: // minute
		return now.Add(time.Duration(-value) * time.Minute)
	}
}

// ParseRelativeTime converts strings like "2 weeks ago" into a time before now.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}
	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid relative time value: %s", matches[1])
	}
	return shiftBack(now, value, matches[2]), nil
}

// ParseDateInput accepts an absolute date (RFC3339 or YYYY-MM-DD), a relative
// "N units ago", or "now". Date-only values are interpreted in loc.
func ParseDateInput(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "now") {
		return now, nil
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected ISO8601, YYYY-MM-DD or 'N [units] ago', got %q", s)
	}
	return t, nil
}

// ParseLookbackDuration converts strings like "14 days" or "336h" into a time.Duration.
// Months and years are approximated as 30 and 365 days.
func ParseLookbackDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, errors.New("lookback must be positive")
		}
		return d, nil
	}

	matches := durationRe.FindStringSubmatch(strings.ToLower(s))
	if matches == nil {
		return 0, fmt.Errorf("invalid lookback duration format: %s", s)
	}
	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid lookback value: %s", matches[1])
	}

	day := 24 * time.Hour
	var unit time.Duration
	switch matches[2] {
	case "year":
		unit = 365 * day
	case "month":
		unit = 30 * day
	case "week":
		unit = 7 * day
	case "day":
		unit = day
	case "hour":
		unit = time.Hour
	default:
		unit = time.Minute
	}

	if value == 0 {
		return 0, errors.New("lookback must be positive")
	}
	if time.Duration(value) > math.MaxInt64/unit {
		return 0, fmt.Errorf("lookback too large: %s", s)
	}
	return time.Duration(value) * unit, nil
}
