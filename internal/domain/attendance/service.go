package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/auth"
)

// AttendanceService defines business logic for punch operations
type AttendanceService interface {
	// Today derives the acting user's attendance for the current working date
	Today(ctx context.Context) (DayAttendanceResponse, error)

	// Snapshot derives a user's attendance for the current working date
	Snapshot(ctx context.Context, identity auth.Identity) (DayAttendance, error)

	// Render formats a snapshot using the service clock (live duration)
	Render(day DayAttendance) DayAttendanceResponse

	// CheckAdmissibility runs the submission gate without persisting anything
	CheckAdmissibility(ctx context.Context, req PunchRequest) (AdmissibilityResponse, error)

	// PunchIn opens a new session
	PunchIn(ctx context.Context, req PunchRequest) (PunchResponse, error)

	// PunchOut closes the open session
	PunchOut(ctx context.Context, req PunchRequest) (PunchResponse, error)

	// CorrectRecord lets a manager fix times or locations of a punch row
	CorrectRecord(ctx context.Context, req CorrectPunchRequest) (PunchRecordResponse, error)
}
