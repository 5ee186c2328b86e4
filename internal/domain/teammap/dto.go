package teammap

import (
	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
)

type TeamMapRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, empty means today
}

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type MarkerResponse struct {
	UserID        string               `json:"user_id"`
	UserName      string               `json:"user_name,omitempty"`
	Position      Position             `json:"position"`
	Original      Position             `json:"original"`
	Offset        int                  `json:"offset"`
	Label         string               `json:"label"`
	Status        attendance.DayStatus `json:"status"`
	TotalDuration string               `json:"total_duration"`
}

type TeamMapResponse struct {
	Date    string           `json:"date"`
	Markers []MarkerResponse `json:"markers"`
	Summary Summary          `json:"summary"`
}

// ExportFile is a generated team-map workbook.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
