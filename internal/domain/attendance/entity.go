package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
)

// DayStatus is the derived attendance state of one user on one day.
type DayStatus string

const (
	StatusNotStarted DayStatus = "NOT_STARTED"
	StatusActive     DayStatus = "ACTIVE"
	StatusCompleted  DayStatus = "COMPLETED"
)

// PunchEntry is a stored punch row. Locations are kept exactly as the device
// sent them and must go through ToRecord before use.
type PunchEntry struct {
	ID                  string
	UserID              string
	CompanyID           string
	Date                time.Time
	PunchIn             *time.Time
	PunchOut            *time.Time
	PunchInLocationRaw  *string
	PunchOutLocationRaw *string
	DeviceHash          *string
	IPAddress           *string
	UserAgent           *string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// DTO
	UserName *string
}

// ToRecord normalizes the raw row into a PunchRecord. Unparseable locations
// become nil.
func (e PunchEntry) ToRecord() PunchRecord {
	record := PunchRecord{
		ID:               e.ID,
		UserID:           e.UserID,
		CompanyID:        e.CompanyID,
		Date:             e.Date,
		PunchIn:          e.PunchIn,
		PunchOut:         e.PunchOut,
		PunchInLocation:  geo.NormalizePtr(e.PunchInLocationRaw),
		PunchOutLocation: geo.NormalizePtr(e.PunchOutLocationRaw),
	}
	if e.UserName != nil {
		record.UserName = *e.UserName
	}
	return record
}

// PunchRecord is one attendance session as the engine sees it.
// If PunchOut is set it must not precede PunchIn.
type PunchRecord struct {
	ID               string
	UserID           string
	UserName         string
	CompanyID        string
	Date             time.Time
	PunchIn          *time.Time
	PunchOut         *time.Time
	PunchInLocation  *geo.Location
	PunchOutLocation *geo.Location
}

// IsOpen reports whether the record has a punch-in without a punch-out.
func (r PunchRecord) IsOpen() bool {
	return r.PunchIn != nil && r.PunchOut == nil
}

// LastLocation is the most recent location the record carries.
func (r PunchRecord) LastLocation() *geo.Location {
	if r.PunchOut != nil && r.PunchOutLocation != nil {
		return r.PunchOutLocation
	}
	return r.PunchInLocation
}

// Session is derived from a single PunchRecord.
type Session struct {
	RecordID        string     `json:"record_id"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Open            bool       `json:"open"`
	// Stale marks an open record that lost the tie-break against a later
	// open record; it counts as completed with zero duration.
	Stale bool `json:"stale,omitempty"`
}

// AnomalyKind classifies data-integrity problems found while rebuilding a day.
type AnomalyKind string

const (
	AnomalyMultipleOpenSessions AnomalyKind = "MULTIPLE_OPEN_SESSIONS"
	AnomalyOpenBeforeClosed     AnomalyKind = "OPEN_SESSION_NOT_LAST"
	AnomalyNegativeSpan         AnomalyKind = "NEGATIVE_SPAN"
	AnomalyMissingPunchIn       AnomalyKind = "MISSING_PUNCH_IN"
)

// Anomaly is a flagged data-integrity condition. It is never fatal.
type Anomaly struct {
	Kind     AnomalyKind `json:"kind"`
	RecordID string      `json:"record_id"`
}

// DayAttendance is the derived aggregate for one user and date.
type DayAttendance struct {
	Status       DayStatus
	Sessions     []Session
	TotalSeconds int64
	// Unusable holds records without a punch-in, kept for diagnostics only.
	Unusable  []PunchRecord
	Anomalies []Anomaly
}

// OpenSession returns the open session, if any.
func (d DayAttendance) OpenSession() (Session, bool) {
	for _, s := range d.Sessions {
		if s.Open {
			return s, true
		}
	}
	return Session{}, false
}

// DeviceContext is attached to every punch attempt. It is required to be
// present, never verified.
type DeviceContext struct {
	IP                string   `json:"ip"`
	UserAgent         string   `json:"user_agent"`
	DeviceFingerprint string   `json:"device_fingerprint"`
	Accuracy          *float64 `json:"accuracy,omitempty"`
	Timestamp         string   `json:"timestamp,omitempty"`
}

// UnknownIP replaces an IP address that could not be determined.
const UnknownIP = "Unknown"

// RejectReason explains why a punch attempt is inadmissible.
type RejectReason string

const (
	ReasonOnLeave         RejectReason = "ON_LEAVE"
	ReasonMissingLocation RejectReason = "MISSING_LOCATION"
	ReasonOutsideRadius   RejectReason = "OUTSIDE_RADIUS"
)

// Message is the user-facing wording for the reason.
func (r RejectReason) Message() string {
	switch r {
	case ReasonOnLeave:
		return "You are on approved leave today, punching is not available"
	case ReasonMissingLocation:
		return "Your location could not be determined. Enable location access and try again"
	case ReasonOutsideRadius:
		return "You are outside the allowed attendance area"
	default:
		return "Punch is allowed"
	}
}

// SubmissionPayload is what an admissible punch sends onward for storage.
type SubmissionPayload struct {
	Lat               float64  `json:"lat"`
	Lng               float64  `json:"lng"`
	Accuracy          *float64 `json:"accuracy"`
	IP                string   `json:"ip"`
	DeviceFingerprint string   `json:"device_fingerprint"`
	UserAgent         string   `json:"user_agent"`
	Timestamp         string   `json:"timestamp"`
	Address           string   `json:"address,omitempty"`
}

// Decision is the outcome of the punch submission gate.
type Decision struct {
	Admissible bool
	Reason     RejectReason
	Payload    *SubmissionPayload
	Location   *geo.Location
}

// PunchKind labels a change to a punch row.
type PunchKind string

const (
	PunchIn         PunchKind = "PUNCH_IN"
	PunchOut        PunchKind = "PUNCH_OUT"
	PunchCorrection PunchKind = "CORRECTION"
)
