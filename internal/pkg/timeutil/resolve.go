package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	ClockLayout    = "15:04:05"
)

var clockRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// Layouts interpreted in the reference location.
var localLayouts = []string{
	DateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Resolve turns a time-of-day ("HH:MM:SS" or "HH:MM") or a full date-time
// string into an instant. A bare time of day is placed on ref's calendar day
// in ref's location. It returns false when raw cannot be resolved, including
// well-formed times with out-of-range fields such as "25:00".
func Resolve(raw string, ref time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if m := clockRegex.FindStringSubmatch(raw); m != nil {
		return clockOn(m, ref)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}

	loc := ref.Location()
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ResolveDate parses a "YYYY-MM-DD" date at midnight in loc.
func ResolveDate(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateKey is a comparable calendar-day key (yyyymmdd) for t in its own location.
func DateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func clockOn(m []string, ref time.Time) (time.Time, bool) {
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	y, mo, d := ref.Date()
	t := time.Date(y, mo, d, hour, minute, second, 0, ref.Location())

	// time.Date normalises overflow (25:00 becomes 01:00 next day), so the
	// constructed instant must carry exactly the requested fields.
	ty, tmo, td := t.Date()
	if ty != y || tmo != mo || td != d ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}
	return t, true
}
