package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/timeutil"
)

// DefaultLocationTimeout bounds location acquisition.
const DefaultLocationTimeout = 10 * time.Second

// LocationSource supplies a raw location payload (sensor reading, request body).
type LocationSource interface {
	Locate(ctx context.Context) (any, error)
}

// LocationSourceFunc adapts a function to LocationSource.
type LocationSourceFunc func(ctx context.Context) (any, error)

func (f LocationSourceFunc) Locate(ctx context.Context) (any, error) {
	return f(ctx)
}

// StaticLocation is a source whose payload is already known.
type StaticLocation struct {
	Raw any
}

func (s StaticLocation) Locate(context.Context) (any, error) {
	return s.Raw, nil
}

// AcquireLocation reads and normalizes a location within timeout. Timeouts,
// source errors, cancellation and unparseable payloads all yield nil.
func AcquireLocation(ctx context.Context, src LocationSource, timeout time.Duration) *geo.Location {
	if src == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultLocationTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		raw any
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := src.Locate(ctx)
		done <- result{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil
	case res := <-done:
		if res.err != nil {
			return nil
		}
		loc, ok := geo.Normalize(res.raw)
		if !ok {
			return nil
		}
		return &loc
	}
}

// SubmissionContext is everything the gate needs to judge a punch attempt.
type SubmissionContext struct {
	LeaveWindows []leave.LeaveWindow
	Location     *geo.Location
	Device       *attendance.DeviceContext
	// Geofences is optional; when empty no radius check is made.
	Geofences []geo.Geofence
}

// CanSubmit decides whether a punch attempt may proceed to storage.
// It rejects ON_LEAVE when now's calendar date lies inside any leave window
// (bounds inclusive), MISSING_LOCATION when no location was normalized and
// OUTSIDE_RADIUS when geofences are configured and none contains the
// location. Admissible decisions carry the submission payload; nothing is
// persisted here.
func CanSubmit(in SubmissionContext, now time.Time) attendance.Decision {
	if leave.AnyCovers(in.LeaveWindows, now) {
		return rejected(attendance.ReasonOnLeave)
	}

	if in.Location == nil {
		return rejected(attendance.ReasonMissingLocation)
	}

	if len(in.Geofences) > 0 && !geo.InAnyFence(*in.Location, in.Geofences) {
		return rejected(attendance.ReasonOutsideRadius)
	}

	loc := *in.Location
	return attendance.Decision{
		Admissible: true,
		Payload:    buildPayload(loc, in.Device, now),
		Location:   &loc,
	}
}

func rejected(reason attendance.RejectReason) attendance.Decision {
	return attendance.Decision{Admissible: false, Reason: reason}
}

func buildPayload(loc geo.Location, device *attendance.DeviceContext, now time.Time) *attendance.SubmissionPayload {
	payload := &attendance.SubmissionPayload{
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		Accuracy:  loc.Accuracy,
		IP:        attendance.UnknownIP,
		Timestamp: now.Format(time.RFC3339),
		Address:   loc.Address,
	}

	if device == nil {
		return payload
	}

	if ip := strings.TrimSpace(device.IP); ip != "" {
		payload.IP = ip
	}
	payload.UserAgent = device.UserAgent
	payload.DeviceFingerprint = device.DeviceFingerprint
	if device.Accuracy != nil {
		accuracy := *device.Accuracy
		payload.Accuracy = &accuracy
	}
	if ts, ok := timeutil.Resolve(device.Timestamp, now); ok {
		payload.Timestamp = ts.Format(time.RFC3339)
	}

	return payload
}
