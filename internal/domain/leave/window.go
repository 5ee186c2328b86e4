package leave

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/timeutil"
)

// LeaveWindow is an approved leave period. FromDate and ToDate are calendar
// dates and both bounds are inclusive.
type LeaveWindow struct {
	UserID    string
	FromDate  time.Time
	ToDate    time.Time
	LeaveType string
}

// Covers reports whether day falls inside the window, compared by calendar
// date so that time of day and time zone of the bounds do not matter.
func (w LeaveWindow) Covers(day time.Time) bool {
	key := timeutil.DateKey(day)
	return key >= timeutil.DateKey(w.FromDate) && key <= timeutil.DateKey(w.ToDate)
}

// AnyCovers reports whether any window covers day.
func AnyCovers(windows []LeaveWindow, day time.Time) bool {
	for _, w := range windows {
		if w.Covers(day) {
			return true
		}
	}
	return false
}

// LeaveWindowRepository reads approved leave windows.
type LeaveWindowRepository interface {
	// ListApprovedByUser returns the user's approved windows that touch date
	ListApprovedByUser(ctx context.Context, userID string, companyID string, date time.Time) ([]LeaveWindow, error)

	// ListApprovedOnDate returns every approved window in the company covering date
	ListApprovedOnDate(ctx context.Context, companyID string, date time.Time) ([]LeaveWindow, error)
}
