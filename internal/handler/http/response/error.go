package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/teammap"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Punch rejections carry their reason code
	var rejection *attendance.RejectionError
	if errors.As(err, &rejection) {
		Rejected(w, string(rejection.Reason), rejection.Reason.Message())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUserClaimMissing),
		errors.Is(err, auth.ErrCompanyClaimMissing):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrManagerAccessRequired):
		Forbidden(w, "Manager access required")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAlreadyPunchedIn):
		Conflict(w, "You have already punched in")
	case errors.Is(err, attendance.ErrNotPunchedIn):
		Conflict(w, "You have not punched in yet")
	case errors.Is(err, attendance.ErrPunchRecordNotFound):
		NotFound(w, "Punch record not found")
	case errors.Is(err, attendance.ErrInvalidDate):
		BadRequest(w, "Date must be in YYYY-MM-DD format", nil)
	case errors.Is(err, attendance.ErrSubmissionFailed):
		slog.Error("Attendance submission failed", "error", err)
		BadGateway(w, "Unable to record attendance right now, please try again")

	// Team map errors
	case errors.Is(err, teammap.ErrExportFailed):
		slog.Error("Team map export failed", "error", err)
		InternalServerError(w, "Failed to generate export")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
