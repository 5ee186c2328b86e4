package teammap

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/teammap"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/timeutil"
	attendancesvc "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type TeamMapServiceImpl struct {
	attendance.PunchRepository
	leave.LeaveWindowRepository
	location  *time.Location
	declutter geo.DeclutterOptions
	now       func() time.Time
	sf        *singleflight.Group
}

func NewTeamMapService(
	punchRepo attendance.PunchRepository,
	leaveRepo leave.LeaveWindowRepository,
	location *time.Location,
	declutter geo.DeclutterOptions,
) teammap.TeamMapService {
	if location == nil {
		location = time.UTC
	}
	return &TeamMapServiceImpl{
		PunchRepository:       punchRepo,
		LeaveWindowRepository: leaveRepo,
		location:              location,
		declutter:             declutter,
		now:                   time.Now,
		sf:                    &singleflight.Group{},
	}
}

// GetTeamMap implements teammap.TeamMapService.
func (s *TeamMapServiceImpl) GetTeamMap(ctx context.Context, req teammap.TeamMapRequest) (teammap.TeamMapResponse, error) {
	tm, err := s.build(ctx, req)
	if err != nil {
		return teammap.TeamMapResponse{}, err
	}
	return toResponse(tm), nil
}

func (s *TeamMapServiceImpl) build(ctx context.Context, req teammap.TeamMapRequest) (teammap.TeamMap, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return teammap.TeamMap{}, err
	}

	now := s.now().In(s.location)
	date := timeutil.StartOfDay(now)
	if req.Date != "" {
		d, ok := timeutil.ResolveDate(req.Date, s.location)
		if !ok {
			return teammap.TeamMap{}, attendance.ErrInvalidDate
		}
		date = d
	}

	// Open sessions on past dates are measured up to the end of that day.
	measureAt := now
	if end := date.AddDate(0, 0, 1); end.Before(now) {
		measureAt = end
	}

	// Concurrent requests for the same company and date share one load
	key := identity.CompanyID + ":" + date.Format(timeutil.DateLayout)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.load(ctx, identity.CompanyID, date, measureAt)
	})
	if err != nil {
		return teammap.TeamMap{}, err
	}
	return v.(teammap.TeamMap), nil
}

func (s *TeamMapServiceImpl) load(ctx context.Context, companyID string, date, measureAt time.Time) (teammap.TeamMap, error) {
	var (
		entries []attendance.PunchEntry
		windows []leave.LeaveWindow
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		data, err := s.PunchRepository.ListByDate(gCtx, companyID, date)
		if err != nil {
			return fmt.Errorf("failed to list punch records: %w", err)
		}
		entries = data
		return nil
	})

	g.Go(func() error {
		data, err := s.LeaveWindowRepository.ListApprovedOnDate(gCtx, companyID, date)
		if err != nil {
			return fmt.Errorf("failed to list leave windows: %w", err)
		}
		windows = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return teammap.TeamMap{}, err
	}

	records := make([]attendance.PunchRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.ToRecord())
	}
	order, byUser := groupByUser(records)

	summary := Summarize(byUser)
	summary.OnLeave = countOnLeave(windows, date)

	points := make([]geo.Point, 0, len(order))
	markers := make(map[string]teammap.Marker, len(order))
	for _, userID := range order {
		userRecords := byUser[userID]
		loc := lastLocation(userRecords)
		if loc == nil {
			continue
		}

		day := attendancesvc.Evaluate(userRecords, measureAt)
		markers[userID] = teammap.Marker{
			UserID:       userID,
			UserName:     userRecords[0].UserName,
			Original:     *loc,
			Status:       day.Status,
			TotalSeconds: day.TotalSeconds,
		}
		points = append(points, geo.Point{UserID: userID, Location: *loc})
	}

	placed := geo.Declutter(points, s.declutter)

	result := teammap.TeamMap{
		Date:    date,
		Markers: make([]teammap.Marker, 0, len(placed)),
		Summary: summary,
	}
	for _, p := range placed {
		m := markers[p.UserID]
		m.Position = p.Location
		m.Offset = p.Offset
		result.Markers = append(result.Markers, m)
	}

	return result, nil
}

// lastLocation is the most recent location across a user's records.
func lastLocation(records []attendance.PunchRecord) *geo.Location {
	sorted := sortByPunchIn(records)
	for i := len(sorted) - 1; i >= 0; i-- {
		if loc := sorted[i].LastLocation(); loc != nil {
			return loc
		}
	}
	return nil
}

func countOnLeave(windows []leave.LeaveWindow, date time.Time) int {
	users := make(map[string]struct{})
	for _, w := range windows {
		if w.Covers(date) {
			users[w.UserID] = struct{}{}
		}
	}
	return len(users)
}

func toResponse(tm teammap.TeamMap) teammap.TeamMapResponse {
	markers := make([]teammap.MarkerResponse, 0, len(tm.Markers))
	for _, m := range tm.Markers {
		markers = append(markers, teammap.MarkerResponse{
			UserID:        m.UserID,
			UserName:      m.UserName,
			Position:      teammap.Position{Lat: m.Position.Lat, Lng: m.Position.Lng},
			Original:      teammap.Position{Lat: m.Original.Lat, Lng: m.Original.Lng},
			Offset:        m.Offset,
			Label:         m.Original.Display(),
			Status:        m.Status,
			TotalDuration: attendancesvc.FormatDuration(m.TotalSeconds),
		})
	}

	return teammap.TeamMapResponse{
		Date:    tm.Date.Format(timeutil.DateLayout),
		Markers: markers,
		Summary: tm.Summary,
	}
}
