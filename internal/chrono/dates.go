package chrono

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the M/D/YYYY layout used by Arena exports and by every
// date written to the spreadsheets.
const DateLayout = "1/2/2006"

const day = 24 * time.Hour

// Midnight truncates t to the start of its day in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// LastSunday returns the most recent Sunday at midnight on or before t.
func LastSunday(t time.Time) time.Time {
	t = Midnight(t)
	return t.AddDate(0, 0, -int(t.Weekday()))
}

// DaysBetween returns the absolute number of days between a and b, rounded up.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(float64(diff) / float64(day)))
}

// FullWeeksBetween returns the number of whole weeks between a and b.
func FullWeeksBetween(a, b time.Time) int {
	return DaysBetween(a, b) / 7
}

// FullWeeksBetweenExcludingGaps is FullWeeksBetween minus the gap dates
// falling within [min(a, b), max(a, b)].
func FullWeeksBetweenExcludingGaps(a, b time.Time, gaps []time.Time) int {
	start, end := a, b
	if end.Before(start) {
		start, end = end, start
	}

	weeks := FullWeeksBetween(a, b)
	for _, gap := range gaps {
		if gap.Before(start) || gap.After(end) {
			continue
		}
		weeks--
	}
	if weeks < 0 {
		return 0
	}
	return weeks
}

// StripTime drops everything after the first space, "9/7/2014 12:00:00 AM" -> "9/7/2014".
func StripTime(s string) string {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, " ")
	if idx < 0 {
		return s
	}
	return s[:idx]
}

// ParseDate parses an Arena date in loc, a trailing time component is ignored.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	stripped := StripTime(s)
	if stripped == "" {
		return time.Time{}, fmt.Errorf("parse date: empty value")
	}
	t, err := time.ParseInLocation(DateLayout, stripped, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as M/D/YYYY, the zero time is formatted as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
