package attendance

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// EventPunch is published after a punch row changes.
const EventPunch = "punch"

// Notifier receives punch events for live streams.
type Notifier interface {
	PublishToMany(topics []string, event sse.Event)
}

// Options configures the attendance service.
type Options struct {
	// Location defines the working day boundaries.
	Location        *time.Location
	LocationTimeout time.Duration
	Geofences       []geo.Geofence
}

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.PunchRepository
	leave.LeaveWindowRepository
	notifier Notifier
	opts     Options
	now      func() time.Time
}

func NewAttendanceService(
	tx database.Transactor,
	punchRepo attendance.PunchRepository,
	leaveRepo leave.LeaveWindowRepository,
	notifier Notifier,
	opts Options,
) attendance.AttendanceService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LocationTimeout <= 0 {
		opts.LocationTimeout = DefaultLocationTimeout
	}
	return &AttendanceServiceImpl{
		tx:                    tx,
		PunchRepository:       punchRepo,
		LeaveWindowRepository: leaveRepo,
		notifier:              notifier,
		opts:                  opts,
		now:                   time.Now,
	}
}

func (s *AttendanceServiceImpl) clock() time.Time {
	return s.now().In(s.opts.Location)
}

// Today implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Today(ctx context.Context) (attendance.DayAttendanceResponse, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return attendance.DayAttendanceResponse{}, err
	}

	day, err := s.Snapshot(ctx, identity)
	if err != nil {
		return attendance.DayAttendanceResponse{}, err
	}

	return s.Render(day), nil
}

// Snapshot implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Snapshot(ctx context.Context, identity auth.Identity) (attendance.DayAttendance, error) {
	now := s.clock()

	entries, err := s.PunchRepository.ListByUserAndDate(ctx, identity.UserID, identity.CompanyID, timeutil.StartOfDay(now))
	if err != nil {
		return attendance.DayAttendance{}, fmt.Errorf("failed to list punch records: %w", err)
	}

	day := Evaluate(toRecords(entries), now)
	logAnomalies(identity, day)

	return day, nil
}

// Render implements attendance.AttendanceService.
// Open sessions are measured up to the service clock, so repeated calls on
// the same snapshot yield a live total.
func (s *AttendanceServiceImpl) Render(day attendance.DayAttendance) attendance.DayAttendanceResponse {
	now := s.clock()
	loc := s.opts.Location

	total := Aggregate(day.Sessions, now)

	sessions := make([]attendance.SessionResponse, 0, len(day.Sessions))
	for _, session := range day.Sessions {
		seconds := session.DurationSeconds
		if session.Open {
			seconds = elapsedSeconds(session.Start, now)
		}

		resp := attendance.SessionResponse{
			RecordID:        session.RecordID,
			Start:           session.Start.In(loc).Format(time.RFC3339),
			DurationSeconds: seconds,
			Duration:        FormatDuration(seconds),
			Open:            session.Open,
			Stale:           session.Stale,
		}
		if session.End != nil {
			end := session.End.In(loc).Format(time.RFC3339)
			resp.End = &end
		}
		sessions = append(sessions, resp)
	}

	return attendance.DayAttendanceResponse{
		Date:          now.Format(timeutil.DateLayout),
		Status:        day.Status,
		TotalSeconds:  total,
		TotalDuration: FormatDuration(total),
		WorkingHours:  FormatHours(total),
		Sessions:      sessions,
		CanPunchIn:    day.Status != attendance.StatusActive,
		CanPunchOut:   day.Status == attendance.StatusActive,
		Anomalies:     day.Anomalies,
	}
}

// CheckAdmissibility implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckAdmissibility(ctx context.Context, req attendance.PunchRequest) (attendance.AdmissibilityResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AdmissibilityResponse{}, err
	}

	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return attendance.AdmissibilityResponse{}, err
	}

	decision, err := s.decide(ctx, identity, req, s.clock())
	if err != nil {
		return attendance.AdmissibilityResponse{}, err
	}

	return attendance.AdmissibilityResponse{
		Admissible: decision.Admissible,
		Reason:     decision.Reason,
		Message:    decision.Reason.Message(),
		Payload:    decision.Payload,
	}, nil
}

// PunchIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) PunchIn(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchResponse{}, err
	}

	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return attendance.PunchResponse{}, err
	}

	now := s.clock()

	decision, err := s.decide(ctx, identity, req, now)
	if err != nil {
		return attendance.PunchResponse{}, err
	}
	if !decision.Admissible {
		return attendance.PunchResponse{}, attendance.NewRejectionError(decision.Reason)
	}

	var (
		created attendance.PunchEntry
		entries []attendance.PunchEntry
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.PunchRepository.LockUser(ctx, identity.UserID); err != nil {
			return submissionFailed(err)
		}

		var err error
		entries, err = s.PunchRepository.ListByUserAndDate(ctx, identity.UserID, identity.CompanyID, timeutil.StartOfDay(now))
		if err != nil {
			return submissionFailed(err)
		}

		if Reconstruct(toRecords(entries)).Status == attendance.StatusActive {
			return attendance.ErrAlreadyPunchedIn
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate punch id: %w", err)
		}

		locationRaw := decision.Location.Encode()
		created, err = s.PunchRepository.Create(ctx, attendance.PunchEntry{
			ID:                 id.String(),
			UserID:             identity.UserID,
			CompanyID:          identity.CompanyID,
			Date:               timeutil.StartOfDay(now),
			PunchIn:            &now,
			PunchInLocationRaw: &locationRaw,
			DeviceHash:         hashFingerprint(decision.Payload.DeviceFingerprint),
			IPAddress:          &decision.Payload.IP,
			UserAgent:          &decision.Payload.UserAgent,
		})
		if err != nil {
			return submissionFailed(err)
		}
		return nil
	})
	if err != nil {
		return attendance.PunchResponse{}, err
	}

	slog.Info("Punch in recorded", "user_id", identity.UserID, "company_id", identity.CompanyID, "record_id", created.ID)
	s.publish(identity, attendance.PunchIn, created.ID)

	day := Evaluate(toRecords(append(entries, created)), now)
	return attendance.PunchResponse{
		Record:  s.recordResponse(created.ToRecord()),
		Payload: *decision.Payload,
		Today:   s.Render(day),
	}, nil
}

// PunchOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) PunchOut(ctx context.Context, req attendance.PunchRequest) (attendance.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchResponse{}, err
	}

	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return attendance.PunchResponse{}, err
	}

	now := s.clock()

	decision, err := s.decide(ctx, identity, req, now)
	if err != nil {
		return attendance.PunchResponse{}, err
	}
	if !decision.Admissible {
		return attendance.PunchResponse{}, attendance.NewRejectionError(decision.Reason)
	}

	var (
		closed  attendance.PunchEntry
		entries []attendance.PunchEntry
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.PunchRepository.LockUser(ctx, identity.UserID); err != nil {
			return submissionFailed(err)
		}

		var err error
		entries, err = s.PunchRepository.ListByUserAndDate(ctx, identity.UserID, identity.CompanyID, timeutil.StartOfDay(now))
		if err != nil {
			return submissionFailed(err)
		}

		open, ok := Reconstruct(toRecords(entries)).OpenSession()
		if !ok {
			return attendance.ErrNotPunchedIn
		}

		locationRaw := decision.Location.Encode()
		if err := s.PunchRepository.Close(ctx, open.RecordID, identity.CompanyID, now, &locationRaw); err != nil {
			if errors.Is(err, attendance.ErrPunchRecordNotFound) {
				return attendance.ErrNotPunchedIn
			}
			return submissionFailed(err)
		}

		for i := range entries {
			if entries[i].ID == open.RecordID {
				entries[i].PunchOut = &now
				entries[i].PunchOutLocationRaw = &locationRaw
				closed = entries[i]
				break
			}
		}
		return nil
	})
	if err != nil {
		return attendance.PunchResponse{}, err
	}

	slog.Info("Punch out recorded", "user_id", identity.UserID, "company_id", identity.CompanyID, "record_id", closed.ID)
	s.publish(identity, attendance.PunchOut, closed.ID)

	day := Evaluate(toRecords(entries), now)
	return attendance.PunchResponse{
		Record:  s.recordResponse(closed.ToRecord()),
		Payload: *decision.Payload,
		Today:   s.Render(day),
	}, nil
}

// CorrectRecord implements attendance.AttendanceService.
// This allows managers to fix punch rows such as a forgotten punch-out or a
// wrong device clock.
func (s *AttendanceServiceImpl) CorrectRecord(ctx context.Context, req attendance.CorrectPunchRequest) (attendance.PunchRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.PunchRecordResponse{}, err
	}

	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return attendance.PunchRecordResponse{}, err
	}

	entry, err := s.PunchRepository.GetByID(ctx, req.ID, identity.CompanyID)
	if err != nil {
		if errors.Is(err, attendance.ErrPunchRecordNotFound) {
			return attendance.PunchRecordResponse{}, attendance.ErrPunchRecordNotFound
		}
		return attendance.PunchRecordResponse{}, fmt.Errorf("failed to get punch record: %w", err)
	}

	// Bare times of day land on the record's working date.
	y, m, d := entry.Date.Date()
	ref := time.Date(y, m, d, 0, 0, 0, 0, s.opts.Location)

	var errs validator.ValidationErrors

	if req.PunchInTime != nil {
		if t, ok := timeutil.Resolve(*req.PunchInTime, ref); ok {
			entry.PunchIn = &t
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "punch_in_time",
				Message: "punch_in_time must be HH:MM[:SS] or a full date-time",
			})
		}
	}

	if req.PunchOutTime != nil {
		if t, ok := timeutil.Resolve(*req.PunchOutTime, ref); ok {
			entry.PunchOut = &t
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "punch_out_time",
				Message: "punch_out_time must be HH:MM[:SS] or a full date-time",
			})
		}
	}

	if len(req.PunchInLocation) > 0 {
		if raw, ok := encodeLocation(req.PunchInLocation); ok {
			entry.PunchInLocationRaw = &raw
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "punch_in_location",
				Message: "punch_in_location is not a valid location",
			})
		}
	}

	if len(req.PunchOutLocation) > 0 {
		if raw, ok := encodeLocation(req.PunchOutLocation); ok {
			entry.PunchOutLocationRaw = &raw
		} else {
			errs = append(errs, validator.ValidationError{
				Field:   "punch_out_location",
				Message: "punch_out_location is not a valid location",
			})
		}
	}

	if len(errs) == 0 {
		switch {
		case entry.PunchOut != nil && entry.PunchIn == nil:
			errs = append(errs, validator.ValidationError{
				Field:   "punch_in_time",
				Message: "punch_in_time is required when punch_out_time is set",
			})
		case entry.PunchOut != nil && entry.PunchOut.Before(*entry.PunchIn):
			errs = append(errs, validator.ValidationError{
				Field:   "punch_out_time",
				Message: "punch_out_time must not be before punch_in_time",
			})
		}
	}

	if len(errs) > 0 {
		return attendance.PunchRecordResponse{}, errs
	}

	if err := s.PunchRepository.Update(ctx, entry); err != nil {
		if errors.Is(err, attendance.ErrPunchRecordNotFound) {
			return attendance.PunchRecordResponse{}, attendance.ErrPunchRecordNotFound
		}
		return attendance.PunchRecordResponse{}, fmt.Errorf("failed to update punch record: %w", err)
	}

	slog.Info("Punch record corrected", "record_id", entry.ID, "user_id", entry.UserID, "corrected_by", identity.UserID)
	s.publish(auth.Identity{UserID: entry.UserID, CompanyID: entry.CompanyID}, attendance.PunchCorrection, entry.ID)

	return s.recordResponse(entry.ToRecord()), nil
}

// decide runs the submission gate for the acting user at now.
func (s *AttendanceServiceImpl) decide(ctx context.Context, identity auth.Identity, req attendance.PunchRequest, now time.Time) (attendance.Decision, error) {
	windows, err := s.LeaveWindowRepository.ListApprovedByUser(ctx, identity.UserID, identity.CompanyID, timeutil.StartOfDay(now))
	if err != nil {
		return attendance.Decision{}, fmt.Errorf("failed to list leave windows: %w", err)
	}

	device := *req.Device
	if device.IP == "" {
		device.IP = req.RemoteIP
	}

	location := AcquireLocation(ctx, StaticLocation{Raw: req.RawLocation()}, s.opts.LocationTimeout)

	return CanSubmit(SubmissionContext{
		LeaveWindows: windows,
		Location:     location,
		Device:       &device,
		Geofences:    s.opts.Geofences,
	}, now), nil
}

func (s *AttendanceServiceImpl) publish(identity auth.Identity, kind attendance.PunchKind, recordID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishToMany(
		[]string{
			sse.UserTopic(identity.CompanyID, identity.UserID),
			sse.CompanyTopic(identity.CompanyID),
		},
		sse.Event{
			Event: EventPunch,
			Data: map[string]string{
				"kind":      string(kind),
				"user_id":   identity.UserID,
				"record_id": recordID,
			},
		},
	)
}

func (s *AttendanceServiceImpl) recordResponse(r attendance.PunchRecord) attendance.PunchRecordResponse {
	loc := s.opts.Location
	return attendance.PunchRecordResponse{
		ID:               r.ID,
		UserID:           r.UserID,
		UserName:         r.UserName,
		Date:             r.Date.Format(timeutil.DateLayout),
		PunchInTime:      timePtrToString(r.PunchIn, loc),
		PunchOutTime:     timePtrToString(r.PunchOut, loc),
		PunchInLocation:  r.PunchInLocation,
		PunchOutLocation: r.PunchOutLocation,
	}
}

// timePtrToString safely converts a *time.Time to a string in loc.
func timePtrToString(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	format := t.In(loc).Format(timeutil.DateTimeLayout)
	return &format
}

func toRecords(entries []attendance.PunchEntry) []attendance.PunchRecord {
	records := make([]attendance.PunchRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.ToRecord())
	}
	return records
}

func encodeLocation(raw []byte) (string, bool) {
	req := attendance.PunchRequest{Location: raw}
	loc, ok := geo.Normalize(req.RawLocation())
	if !ok {
		return "", false
	}
	return loc.Encode(), true
}

// hashFingerprint stores a digest of the device fingerprint, never the value.
func hashFingerprint(fingerprint string) *string {
	if fingerprint == "" {
		return nil
	}
	sum := blake2b.Sum256([]byte(fingerprint))
	hash := hex.EncodeToString(sum[:])
	return &hash
}

func submissionFailed(err error) error {
	return fmt.Errorf("%w: %w", attendance.ErrSubmissionFailed, err)
}

func logAnomalies(identity auth.Identity, day attendance.DayAttendance) {
	for _, a := range day.Anomalies {
		slog.Warn("Attendance anomaly",
			"kind", a.Kind,
			"record_id", a.RecordID,
			"user_id", identity.UserID,
			"company_id", identity.CompanyID,
		)
	}
}
