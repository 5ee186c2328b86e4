package attendance

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
)

// Reconstruct derives a day's sessions and status from its punch records.
//
// Records are ordered by punch-in; records without a punch-in are set aside
// as unusable. Each remaining record is one session. Only one session may be
// open: the latest open record, and only when no closed session started after
// it. Any other open record is treated as completed with zero duration and
// reported as an anomaly. TotalSeconds covers closed sessions only; use
// Evaluate for a live total.
func Reconstruct(records []attendance.PunchRecord) attendance.DayAttendance {
	day := attendance.DayAttendance{Status: attendance.StatusNotStarted}

	usable := make([]attendance.PunchRecord, 0, len(records))
	for _, r := range records {
		if r.PunchIn == nil {
			day.Unusable = append(day.Unusable, r)
			day.Anomalies = append(day.Anomalies, attendance.Anomaly{
				Kind:     attendance.AnomalyMissingPunchIn,
				RecordID: r.ID,
			})
			continue
		}
		usable = append(usable, r)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].PunchIn.Before(*usable[j].PunchIn)
	})

	openIdx := -1
	for i := len(usable) - 1; i >= 0; i-- {
		if usable[i].IsOpen() {
			openIdx = i
			break
		}
	}
	if openIdx >= 0 && openIdx != len(usable)-1 {
		day.Anomalies = append(day.Anomalies, attendance.Anomaly{
			Kind:     attendance.AnomalyOpenBeforeClosed,
			RecordID: usable[openIdx].ID,
		})
		openIdx = -1
	}

	day.Sessions = make([]attendance.Session, 0, len(usable))
	for i, r := range usable {
		start := *r.PunchIn
		s := attendance.Session{RecordID: r.ID, Start: start}

		switch {
		case r.PunchOut != nil:
			end := *r.PunchOut
			s.End = &end
			if end.Before(start) {
				day.Anomalies = append(day.Anomalies, attendance.Anomaly{
					Kind:     attendance.AnomalyNegativeSpan,
					RecordID: r.ID,
				})
			}
			s.DurationSeconds = elapsedSeconds(start, end)
		case i == openIdx:
			s.Open = true
		default:
			s.Stale = true
			s.End = &start
			if hasLaterOpen(usable, i) {
				day.Anomalies = append(day.Anomalies, attendance.Anomaly{
					Kind:     attendance.AnomalyMultipleOpenSessions,
					RecordID: r.ID,
				})
			}
		}

		day.Sessions = append(day.Sessions, s)
	}

	if n := len(day.Sessions); n > 0 {
		if day.Sessions[n-1].Open {
			day.Status = attendance.StatusActive
		} else {
			day.Status = attendance.StatusCompleted
		}
	}

	day.TotalSeconds = closedSeconds(day.Sessions)
	return day
}

// Evaluate reconstructs the day and adds the open session's elapsed time up to now.
func Evaluate(records []attendance.PunchRecord, now time.Time) attendance.DayAttendance {
	day := Reconstruct(records)
	day.TotalSeconds = Aggregate(day.Sessions, now)
	return day
}

func hasLaterOpen(records []attendance.PunchRecord, idx int) bool {
	for _, r := range records[idx+1:] {
		if r.IsOpen() {
			return true
		}
	}
	return false
}
