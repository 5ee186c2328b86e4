package geo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const maxAddressDisplay = 30

// Location is a validated coordinate. Values reach the rest of the system
// only through Normalize; raw device payloads are never used directly.
type Location struct {
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	Address    string     `json:"address,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// Display returns the label shown for this location: the address truncated
// to 30 characters when present, the coordinates otherwise.
func (l Location) Display() string {
	if addr := strings.TrimSpace(l.Address); addr != "" {
		runes := []rune(addr)
		if len(runes) > maxAddressDisplay {
			return string(runes[:maxAddressDisplay])
		}
		return addr
	}
	return fmt.Sprintf("%.6f, %.6f", l.Lat, l.Lng)
}

// Encode renders the location as the JSON object form accepted by Normalize.
func (l Location) Encode() string {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Sprintf("%g,%g", l.Lat, l.Lng)
	}
	return string(data)
}

func (l Location) valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}
