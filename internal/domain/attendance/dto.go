package attendance

import (
	"encoding/json"

	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// ========================================
// PUNCH DTOs
// ========================================

// PunchRequest is the body of punch-in, punch-out and admissibility calls.
// Location may be an object, a JSON string or a legacy "lat,lng" string.
type PunchRequest struct {
	Location json.RawMessage `json:"location,omitempty"`
	Device   *DeviceContext  `json:"device"`

	// RemoteIP is the address seen by the server, used when the device
	// could not report its own.
	RemoteIP string `json:"-"`
}

func (r *PunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Device == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "device",
			Message: "device context is required",
		})
	} else {
		if validator.IsEmpty(r.Device.DeviceFingerprint) {
			errs = append(errs, validator.ValidationError{
				Field:   "device.device_fingerprint",
				Message: "device_fingerprint is required",
			})
		}
		if validator.IsEmpty(r.Device.UserAgent) {
			errs = append(errs, validator.ValidationError{
				Field:   "device.user_agent",
				Message: "user_agent is required",
			})
		}
		if !validator.IsNonNegative(r.Device.Accuracy) {
			errs = append(errs, validator.ValidationError{
				Field:   "device.accuracy",
				Message: "accuracy must not be negative",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// RawLocation returns the location payload in the form Normalize expects:
// JSON strings are unwrapped, objects are passed as raw JSON.
func (r *PunchRequest) RawLocation() any {
	if len(r.Location) == 0 || string(r.Location) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(r.Location, &s); err == nil {
		return s
	}
	return r.Location
}

type SessionResponse struct {
	RecordID        string  `json:"record_id"`
	Start           string  `json:"start"`
	End             *string `json:"end,omitempty"`
	DurationSeconds int64   `json:"duration_seconds"`
	Duration        string  `json:"duration"`
	Open            bool    `json:"open"`
	Stale           bool    `json:"stale,omitempty"`
}

type DayAttendanceResponse struct {
	Date          string            `json:"date"`
	Status        DayStatus         `json:"status"`
	TotalSeconds  int64             `json:"total_seconds"`
	TotalDuration string            `json:"total_duration"`
	WorkingHours  string            `json:"working_hours"`
	Sessions      []SessionResponse `json:"sessions"`
	CanPunchIn    bool              `json:"can_punch_in"`
	CanPunchOut   bool              `json:"can_punch_out"`
	Anomalies     []Anomaly         `json:"anomalies,omitempty"`
}

type AdmissibilityResponse struct {
	Admissible bool               `json:"admissible"`
	Reason     RejectReason       `json:"reason,omitempty"`
	Message    string             `json:"message"`
	Payload    *SubmissionPayload `json:"payload,omitempty"`
}

type PunchRecordResponse struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	UserName         string        `json:"user_name,omitempty"`
	Date             string        `json:"date"`
	PunchInTime      *string       `json:"punch_in_time,omitempty"`
	PunchOutTime     *string       `json:"punch_out_time,omitempty"`
	PunchInLocation  *geo.Location `json:"punch_in_location,omitempty"`
	PunchOutLocation *geo.Location `json:"punch_out_location,omitempty"`
}

type PunchResponse struct {
	Record  PunchRecordResponse   `json:"record"`
	Payload SubmissionPayload     `json:"payload"`
	Today   DayAttendanceResponse `json:"today"`
}

// CorrectPunchRequest for managers fixing a punch row: forgotten punch-out,
// wrong clock on the device, bad location fix.
type CorrectPunchRequest struct {
	ID               string          `json:"-"`
	PunchInTime      *string         `json:"punch_in_time,omitempty"`  // HH:MM:SS or full datetime
	PunchOutTime     *string         `json:"punch_out_time,omitempty"` // HH:MM:SS or full datetime
	PunchInLocation  json.RawMessage `json:"punch_in_location,omitempty"`
	PunchOutLocation json.RawMessage `json:"punch_out_location,omitempty"`
}

func (r *CorrectPunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id must be a valid UUID",
		})
	}

	if r.PunchInTime == nil && r.PunchOutTime == nil &&
		len(r.PunchInLocation) == 0 && len(r.PunchOutLocation) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "at least one field must be provided",
		})
	}

	if r.PunchInTime != nil && validator.IsEmpty(*r.PunchInTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "punch_in_time",
			Message: "punch_in_time must not be empty",
		})
	}

	if r.PunchOutTime != nil && validator.IsEmpty(*r.PunchOutTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "punch_out_time",
			Message: "punch_out_time must not be empty",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}
