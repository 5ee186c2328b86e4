package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

// Aggregate returns the worked seconds across sessions. Closed sessions
// contribute max(0, end-start); the open session, if any, contributes
// max(0, now-start). It does not modify its input and returns the same
// value for the same now.
func Aggregate(sessions []attendance.Session, now time.Time) int64 {
	total := closedSeconds(sessions)

	openIdx := -1
	for i, s := range sessions {
		if !s.Open {
			continue
		}
		// Should there be several, the latest start is the open one.
		if openIdx < 0 || s.Start.After(sessions[openIdx].Start) {
			openIdx = i
		}
	}
	if openIdx >= 0 {
		total += elapsedSeconds(sessions[openIdx].Start, now)
	}

	return total
}

// FormatDuration renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatHours renders seconds as decimal hours with two places, e.g. "8.50".
func FormatHours(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return decimal.NewFromInt(seconds).
		Div(decimal.NewFromInt(3600)).
		StringFixed(2)
}

func closedSeconds(sessions []attendance.Session) int64 {
	var total int64
	for _, s := range sessions {
		if s.Open || s.End == nil {
			continue
		}
		total += elapsedSeconds(s.Start, *s.End)
	}
	return total
}

func elapsedSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
