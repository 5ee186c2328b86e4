package attendance

import (
	"errors"
	"fmt"
)

// Attendance domain errors
var (
	// Punch state errors
	ErrAlreadyPunchedIn = errors.New("you have already punched in")
	ErrNotPunchedIn     = errors.New("you have not punched in yet")

	// Submission rejections
	ErrOnLeave              = errors.New("you are on approved leave today")
	ErrMissingLocation      = errors.New("your location could not be determined")
	ErrOutsideAllowedRadius = errors.New("you are outside the allowed radius")

	// External failures
	ErrSubmissionFailed = errors.New("attendance could not be recorded")

	// General errors
	ErrPunchRecordNotFound = errors.New("punch record not found")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD format")
)

// RejectionError carries the reason a punch attempt was refused.
type RejectionError struct {
	Reason RejectReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("punch rejected: %s", e.Reason)
}

// Unwrap maps the reason onto its sentinel so errors.Is works.
func (e *RejectionError) Unwrap() error {
	switch e.Reason {
	case ReasonOnLeave:
		return ErrOnLeave
	case ReasonMissingLocation:
		return ErrMissingLocation
	case ReasonOutsideRadius:
		return ErrOutsideAllowedRadius
	default:
		return nil
	}
}

// NewRejectionError builds the error for a rejected decision.
func NewRejectionError(reason RejectReason) error {
	return &RejectionError{Reason: reason}
}
