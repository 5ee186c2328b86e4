package teammap

import (
	"sort"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/teammap"
)

// Summarize classifies each user by their chronologically last punch entry:
// completed when it has a punch-out, active otherwise. Entries without a
// punch-in sort last and never decide the class; users with no punch-in at
// all are not counted.
func Summarize(byUser map[string][]attendance.PunchRecord) teammap.Summary {
	var summary teammap.Summary

	for _, records := range byUser {
		last, ok := lastPunched(records)
		if !ok {
			continue
		}
		summary.Total++
		if last.PunchOut != nil {
			summary.Completed++
		} else {
			summary.Active++
		}
	}

	return summary
}

// lastPunched returns the latest record that has a punch-in.
func lastPunched(records []attendance.PunchRecord) (attendance.PunchRecord, bool) {
	sorted := sortByPunchIn(records)
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].PunchIn != nil {
			return sorted[i], true
		}
	}
	return attendance.PunchRecord{}, false
}

// sortByPunchIn returns a copy ordered by punch-in, missing punch-ins last.
func sortByPunchIn(records []attendance.PunchRecord) []attendance.PunchRecord {
	sorted := make([]attendance.PunchRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PunchIn, sorted[j].PunchIn
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return sorted
}

// groupByUser keeps users in first-seen order so declutter input is stable.
func groupByUser(records []attendance.PunchRecord) ([]string, map[string][]attendance.PunchRecord) {
	order := make([]string, 0)
	byUser := make(map[string][]attendance.PunchRecord)
	for _, r := range records {
		if _, seen := byUser[r.UserID]; !seen {
			order = append(order, r.UserID)
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}
	return order, byUser
}
