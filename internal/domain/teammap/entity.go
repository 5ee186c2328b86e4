package teammap

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/geo"
)

// Summary counts users by the state of their last session of the day.
// Users without any punch-in are in none of Total, Active or Completed.
type Summary struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	OnLeave   int `json:"on_leave"`
}

// Marker is one user's decluttered map position.
type Marker struct {
	UserID       string
	UserName     string
	Position     geo.Location
	Original     geo.Location
	Offset       int
	Status       attendance.DayStatus
	TotalSeconds int64
}

// TeamMap is the supervisory view of a company on one date.
type TeamMap struct {
	Date    time.Time
	Markers []Marker
	Summary Summary
}
