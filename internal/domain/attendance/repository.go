package attendance

import (
	"context"
	"time"
)

// PunchRepository defines data access for punch rows.
// All methods include companyID to prevent cross-company data access.
type PunchRepository interface {
	// LockUser serializes punch writes of one user for the current transaction
	LockUser(ctx context.Context, userID string) error

	// ListByUserAndDate returns a user's punch rows for one working date
	ListByUserAndDate(ctx context.Context, userID string, companyID string, date time.Time) ([]PunchEntry, error)

	// ListByDate returns every user's punch rows for one working date (team map)
	ListByDate(ctx context.Context, companyID string, date time.Time) ([]PunchEntry, error)

	// GetByID retrieves a punch row with company isolation
	GetByID(ctx context.Context, id string, companyID string) (PunchEntry, error)

	// Create stores a new open punch row
	Create(ctx context.Context, entry PunchEntry) (PunchEntry, error)

	// Close sets the punch-out of an open row
	Close(ctx context.Context, id string, companyID string, punchOut time.Time, locationRaw *string) error

	// Update overwrites times and raw locations (manager correction)
	Update(ctx context.Context, entry PunchEntry) error

	// ListOpenSessionAnomalies returns users holding more than one open row
	ListOpenSessionAnomalies(ctx context.Context) ([]OpenSessionAnomaly, error)
}

// OpenSessionAnomaly is one user found with several open punch rows.
type OpenSessionAnomaly struct {
	UserID    string
	CompanyID string
	OpenCount int
	Oldest    time.Time
}
