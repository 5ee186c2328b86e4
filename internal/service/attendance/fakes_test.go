package attendance

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/timeutil"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/require"
)

type fakePunchRepository struct {
	mu        sync.Mutex
	entries   map[string]attendance.PunchEntry
	createErr error
	listErr   error
	locks     int
}

func newFakePunchRepository(entries ...attendance.PunchEntry) *fakePunchRepository {
	repo := &fakePunchRepository{entries: make(map[string]attendance.PunchEntry)}
	for _, e := range entries {
		repo.entries[e.ID] = e
	}
	return repo
}

func (f *fakePunchRepository) LockUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	return nil
}

func (f *fakePunchRepository) ListByUserAndDate(ctx context.Context, userID string, companyID string, date time.Time) ([]attendance.PunchEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []attendance.PunchEntry
	for _, e := range f.entries {
		if e.UserID == userID && e.CompanyID == companyID && timeutil.DateKey(e.Date) == timeutil.DateKey(date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePunchRepository) ListByDate(ctx context.Context, companyID string, date time.Time) ([]attendance.PunchEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.PunchEntry
	for _, e := range f.entries {
		if e.CompanyID == companyID && timeutil.DateKey(e.Date) == timeutil.DateKey(date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePunchRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.PunchEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.CompanyID != companyID {
		return attendance.PunchEntry{}, attendance.ErrPunchRecordNotFound
	}
	return e, nil
}

func (f *fakePunchRepository) Create(ctx context.Context, entry attendance.PunchEntry) (attendance.PunchEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return attendance.PunchEntry{}, f.createErr
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakePunchRepository) Close(ctx context.Context, id string, companyID string, punchOut time.Time, locationRaw *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.CompanyID != companyID || e.PunchOut != nil {
		return attendance.ErrPunchRecordNotFound
	}
	e.PunchOut = &punchOut
	e.PunchOutLocationRaw = locationRaw
	f.entries[id] = e
	return nil
}

func (f *fakePunchRepository) Update(ctx context.Context, entry attendance.PunchEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entry.ID]; !ok {
		return attendance.ErrPunchRecordNotFound
	}
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakePunchRepository) ListOpenSessionAnomalies(ctx context.Context) ([]attendance.OpenSessionAnomaly, error) {
	return nil, nil
}

type fakeLeaveRepository struct {
	windows []leave.LeaveWindow
}

func (f *fakeLeaveRepository) ListApprovedByUser(ctx context.Context, userID string, companyID string, date time.Time) ([]leave.LeaveWindow, error) {
	var out []leave.LeaveWindow
	for _, w := range f.windows {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeLeaveRepository) ListApprovedOnDate(ctx context.Context, companyID string, date time.Time) ([]leave.LeaveWindow, error) {
	return f.windows, nil
}

// inlineTransactor runs fn directly.
type inlineTransactor struct{}

func (inlineTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	topics [][]string
	events []sse.Event
}

func (n *recordingNotifier) PublishToMany(topics []string, event sse.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topics)
	n.events = append(n.events, event)
}

var testTokenAuth = jwtauth.New("HS256", []byte("test-secret"), nil)

func identityContext(t *testing.T, userID, companyID, role string) context.Context {
	t.Helper()
	token, _, err := testTokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"role":       role,
		"type":       "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}
