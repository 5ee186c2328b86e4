package teammap

import (
	"context"
	"errors"
)

var ErrExportFailed = errors.New("failed to generate team map export")

// TeamMapService builds the supervisory map of who punched where
type TeamMapService interface {
	// GetTeamMap returns decluttered markers and the status summary for a date
	GetTeamMap(ctx context.Context, req TeamMapRequest) (TeamMapResponse, error)

	// Export renders the same data as an xlsx workbook
	Export(ctx context.Context, req TeamMapRequest) (ExportFile, error)
}
