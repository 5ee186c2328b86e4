package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
)

type AttendanceJobs struct {
	punchRepo attendance.PunchRepository
}

func NewAttendanceJobs(punchRepo attendance.PunchRepository) *AttendanceJobs {
	return &AttendanceJobs{punchRepo: punchRepo}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     "flag_open_session_anomalies",
		Interval: 1 * time.Hour,
		Timeout:  2 * time.Minute,
		Fn:       j.FlagOpenSessionAnomalies,
	})
}

// FlagOpenSessionAnomalies reports users holding more than one open punch
// row. Rows are left untouched; the day view already resolves them and a
// manager corrects them through the correction endpoint.
func (j *AttendanceJobs) FlagOpenSessionAnomalies(ctx context.Context) error {
	anomalies, err := j.punchRepo.ListOpenSessionAnomalies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open session anomalies: %w", err)
	}

	for _, a := range anomalies {
		slog.Warn("Cron: multiple open punch sessions",
			"kind", attendance.AnomalyMultipleOpenSessions,
			"user_id", a.UserID,
			"company_id", a.CompanyID,
			"open_count", a.OpenCount,
			"oldest_punch_in", a.Oldest,
		)
	}

	slog.Info("Cron: open session scan finished", "flagged_users", len(anomalies))
	return nil
}
