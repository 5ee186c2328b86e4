package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveWindowRepositoryImpl struct {
	db *database.DB
}

// ListApprovedByUser implements leave.LeaveWindowRepository.
func (r *leaveWindowRepositoryImpl) ListApprovedByUser(ctx context.Context, userID string, companyID string, date time.Time) ([]leave.LeaveWindow, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lr.user_id, lr.start_date, lr.end_date, lr.leave_type
		FROM leave_requests lr
		WHERE lr.user_id = $1
		  AND lr.company_id = $2
		  AND lr.status = 'approved'
		  AND lr.start_date <= $3
		  AND lr.end_date >= $3
		ORDER BY lr.start_date ASC
	`

	rows, err := q.Query(ctx, query, userID, companyID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave: %w", err)
	}
	return collectWindows(rows)
}

// ListApprovedOnDate implements leave.LeaveWindowRepository.
func (r *leaveWindowRepositoryImpl) ListApprovedOnDate(ctx context.Context, companyID string, date time.Time) ([]leave.LeaveWindow, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lr.user_id, lr.start_date, lr.end_date, lr.leave_type
		FROM leave_requests lr
		WHERE lr.company_id = $1
		  AND lr.status = 'approved'
		  AND lr.start_date <= $2
		  AND lr.end_date >= $2
		ORDER BY lr.user_id ASC
	`

	rows, err := q.Query(ctx, query, companyID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave on date: %w", err)
	}
	return collectWindows(rows)
}

func collectWindows(rows pgx.Rows) ([]leave.LeaveWindow, error) {
	defer rows.Close()

	windows := make([]leave.LeaveWindow, 0)
	for rows.Next() {
		var w leave.LeaveWindow
		if err := rows.Scan(&w.UserID, &w.FromDate, &w.ToDate, &w.LeaveType); err != nil {
			return nil, fmt.Errorf("failed to scan leave window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave windows: %w", err)
	}
	return windows, nil
}

func NewLeaveWindowRepository(db *database.DB) leave.LeaveWindowRepository {
	return &leaveWindowRepositoryImpl{db: db}
}
