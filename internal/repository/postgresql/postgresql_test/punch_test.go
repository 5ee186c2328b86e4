package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func createTestUser(t *testing.T, ctx context.Context, setup *TestDatabaseSetup, companyID, name string) string {
	t.Helper()
	userID := newID(t)
	_, err := setup.DB.Exec(ctx, `
		INSERT INTO users (id, company_id, full_name, role)
		VALUES ($1, $2, $3, 'employee')
	`, userID, companyID, name)
	require.NoError(t, err)
	return userID
}

func TestPunchRepository_CreateListClose(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPunchRepository(setup.DB)

	companyID := newID(t)
	userID := createTestUser(t, ctx, setup, companyID, "Rina Putri")

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	in := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	raw := `{"lat":-6.2,"lng":106.8}`

	created, err := repo.Create(ctx, attendance.PunchEntry{
		ID:                 newID(t),
		UserID:             userID,
		CompanyID:          companyID,
		Date:               date,
		PunchIn:            &in,
		PunchInLocationRaw: &raw,
	})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	entries, err := repo.ListByUserAndDate(ctx, userID, companyID, date)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Rina Putri", *entries[0].UserName)
	assert.Nil(t, entries[0].PunchOut)

	record := entries[0].ToRecord()
	require.NotNil(t, record.PunchInLocation)
	assert.InDelta(t, -6.2, record.PunchInLocation.Lat, 1e-9)

	out := in.Add(8 * time.Hour)
	require.NoError(t, repo.Close(ctx, created.ID, companyID, out, &raw))

	// Closing twice finds no open row.
	err = repo.Close(ctx, created.ID, companyID, out, &raw)
	assert.True(t, errors.Is(err, attendance.ErrPunchRecordNotFound))

	got, err := repo.GetByID(ctx, created.ID, companyID)
	require.NoError(t, err)
	require.NotNil(t, got.PunchOut)
	assert.True(t, got.PunchOut.Equal(out))
}

func TestPunchRepository_CompanyIsolation(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPunchRepository(setup.DB)

	companyID := newID(t)
	userID := createTestUser(t, ctx, setup, companyID, "Budi")
	in := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, attendance.PunchEntry{
		ID:        newID(t),
		UserID:    userID,
		CompanyID: companyID,
		Date:      in,
		PunchIn:   &in,
	})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, created.ID, newID(t))
	assert.True(t, errors.Is(err, attendance.ErrPunchRecordNotFound))
}

func TestPunchRepository_ListOpenSessionAnomalies(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPunchRepository(setup.DB)

	companyID := newID(t)
	userID := createTestUser(t, ctx, setup, companyID, "Sari")
	first := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	for _, in := range []time.Time{first, second} {
		punchIn := in
		_, err := repo.Create(ctx, attendance.PunchEntry{
			ID:        newID(t),
			UserID:    userID,
			CompanyID: companyID,
			Date:      punchIn,
			PunchIn:   &punchIn,
		})
		require.NoError(t, err)
	}

	anomalies, err := repo.ListOpenSessionAnomalies(ctx)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, userID, anomalies[0].UserID)
	assert.Equal(t, 2, anomalies[0].OpenCount)
	assert.True(t, anomalies[0].Oldest.Equal(first))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewPunchRepository(setup.DB)
	tx := postgresql.NewTransactor(setup.DB)

	companyID := newID(t)
	userID := createTestUser(t, ctx, setup, companyID, "Dewi")
	in := time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.LockUser(ctx, userID))
		_, err := repo.Create(ctx, attendance.PunchEntry{
			ID:        newID(t),
			UserID:    userID,
			CompanyID: companyID,
			Date:      in,
			PunchIn:   &in,
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := repo.ListByUserAndDate(ctx, userID, companyID, in)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLeaveWindowRepository_ApprovedOnly(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewLeaveWindowRepository(setup.DB)

	companyID := newID(t)
	userID := createTestUser(t, ctx, setup, companyID, "Agus")

	insert := `
		INSERT INTO leave_requests (id, user_id, company_id, leave_type, start_date, end_date, status)
		VALUES ($1, $2, $3, 'annual', $4, $5, $6)
	`
	_, err := setup.DB.Exec(ctx, insert, newID(t), userID, companyID, "2025-03-10", "2025-03-12", "approved")
	require.NoError(t, err)
	_, err = setup.DB.Exec(ctx, insert, newID(t), userID, companyID, "2025-03-10", "2025-03-20", "pending")
	require.NoError(t, err)

	onEnd := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	windows, err := repo.ListApprovedByUser(ctx, userID, companyID, onEnd)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].Covers(onEnd))

	after := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	windows, err = repo.ListApprovedOnDate(ctx, companyID, after)
	require.NoError(t, err)
	assert.Empty(t, windows)
}
