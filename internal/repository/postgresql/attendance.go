package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type punchRepository struct {
	db *database.DB
}

const punchColumns = `
	p.id, p.user_id, p.company_id, p.date, p.punch_in, p.punch_out,
	p.punch_in_location, p.punch_out_location,
	p.device_hash, p.ip_address, p.user_agent,
	p.created_at, p.updated_at, u.full_name
`

func scanPunch(row pgx.Row) (attendance.PunchEntry, error) {
	var e attendance.PunchEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.CompanyID, &e.Date, &e.PunchIn, &e.PunchOut,
		&e.PunchInLocationRaw, &e.PunchOutLocationRaw,
		&e.DeviceHash, &e.IPAddress, &e.UserAgent,
		&e.CreatedAt, &e.UpdatedAt, &e.UserName,
	)
	return e, err
}

func collectPunches(rows pgx.Rows) ([]attendance.PunchEntry, error) {
	defer rows.Close()

	entries := make([]attendance.PunchEntry, 0)
	for rows.Next() {
		e, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch record: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate punch records: %w", err)
	}
	return entries, nil
}

// LockUser implements attendance.PunchRepository.
// The advisory lock is released when the surrounding transaction ends.
func (r *punchRepository) LockUser(ctx context.Context, userID string) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("failed to lock user punches: %w", err)
	}
	return nil
}

// ListByUserAndDate implements attendance.PunchRepository.
func (r *punchRepository) ListByUserAndDate(ctx context.Context, userID string, companyID string, date time.Time) ([]attendance.PunchEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + punchColumns + `
		FROM punch_records p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		  AND p.company_id = $2
		  AND p.date = $3
		ORDER BY p.punch_in ASC NULLS FIRST, p.created_at ASC
	`

	rows, err := q.Query(ctx, query, userID, companyID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list punch records: %w", err)
	}
	return collectPunches(rows)
}

// ListByDate implements attendance.PunchRepository.
func (r *punchRepository) ListByDate(ctx context.Context, companyID string, date time.Time) ([]attendance.PunchEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + punchColumns + `
		FROM punch_records p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.company_id = $1
		  AND p.date = $2
		ORDER BY p.user_id ASC, p.punch_in ASC NULLS FIRST
	`

	rows, err := q.Query(ctx, query, companyID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list punch records by date: %w", err)
	}
	return collectPunches(rows)
}

// GetByID implements attendance.PunchRepository.
func (r *punchRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.PunchEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + punchColumns + `
		FROM punch_records p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
		  AND p.company_id = $2
	`

	e, err := scanPunch(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.PunchEntry{}, attendance.ErrPunchRecordNotFound
		}
		return attendance.PunchEntry{}, fmt.Errorf("failed to get punch record: %w", err)
	}
	return e, nil
}

// Create implements attendance.PunchRepository.
func (r *punchRepository) Create(ctx context.Context, entry attendance.PunchEntry) (attendance.PunchEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO punch_records (
			id, user_id, company_id, date, punch_in, punch_in_location,
			device_hash, ip_address, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		entry.ID,
		entry.UserID,
		entry.CompanyID,
		dateOnly(entry.Date),
		entry.PunchIn,
		entry.PunchInLocationRaw,
		entry.DeviceHash,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return attendance.PunchEntry{}, fmt.Errorf("failed to create punch record: %w", err)
	}

	return entry, nil
}

// Close implements attendance.PunchRepository.
func (r *punchRepository) Close(ctx context.Context, id string, companyID string, punchOut time.Time, locationRaw *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE punch_records
		SET punch_out = $3,
			punch_out_location = $4,
			updated_at = NOW()
		WHERE id = $1
		  AND company_id = $2
		  AND punch_out IS NULL
	`

	tag, err := q.Exec(ctx, query, id, companyID, punchOut, locationRaw)
	if err != nil {
		return fmt.Errorf("failed to close punch record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrPunchRecordNotFound
	}
	return nil
}

// Update implements attendance.PunchRepository.
func (r *punchRepository) Update(ctx context.Context, entry attendance.PunchEntry) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE punch_records
		SET punch_in = $3,
			punch_out = $4,
			punch_in_location = $5,
			punch_out_location = $6,
			updated_at = NOW()
		WHERE id = $1
		  AND company_id = $2
	`

	tag, err := q.Exec(ctx, query,
		entry.ID,
		entry.CompanyID,
		entry.PunchIn,
		entry.PunchOut,
		entry.PunchInLocationRaw,
		entry.PunchOutLocationRaw,
	)
	if err != nil {
		return fmt.Errorf("failed to update punch record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrPunchRecordNotFound
	}
	return nil
}

// ListOpenSessionAnomalies implements attendance.PunchRepository.
func (r *punchRepository) ListOpenSessionAnomalies(ctx context.Context) ([]attendance.OpenSessionAnomaly, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT user_id, company_id, COUNT(*), MIN(punch_in)
		FROM punch_records
		WHERE punch_in IS NOT NULL
		  AND punch_out IS NULL
		GROUP BY user_id, company_id
		HAVING COUNT(*) > 1
		ORDER BY MIN(punch_in) ASC
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open session anomalies: %w", err)
	}
	defer rows.Close()

	anomalies := make([]attendance.OpenSessionAnomaly, 0)
	for rows.Next() {
		var a attendance.OpenSessionAnomaly
		if err := rows.Scan(&a.UserID, &a.CompanyID, &a.OpenCount, &a.Oldest); err != nil {
			return nil, fmt.Errorf("failed to scan open session anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate open session anomalies: %w", err)
	}
	return anomalies, nil
}

// dateOnly drops the clock so DATE columns compare on the working date
// rather than on a UTC conversion of it.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewPunchRepository(db *database.DB) attendance.PunchRepository {
	return &punchRepository{db: db}
}
