package geo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// matcher recognises one raw location encoding. Matchers are total: they
// report false instead of failing.
type matcher func(raw any) (Location, bool)

// Ordered by priority: structured object, JSON string, legacy "lat,lng".
var matchers = []matcher{
	fromObject,
	fromJSON,
	fromLegacy,
}

// Normalize parses any supported location encoding into a Location.
// It returns false for every malformed or out-of-range input.
func Normalize(raw any) (Location, bool) {
	for _, match := range matchers {
		if loc, ok := match(raw); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// NormalizePtr is Normalize for optional stored values.
func NormalizePtr(raw *string) *Location {
	if raw == nil {
		return nil
	}
	loc, ok := Normalize(*raw)
	if !ok {
		return nil
	}
	return &loc
}

func fromObject(raw any) (Location, bool) {
	switch v := raw.(type) {
	case Location:
		return checked(v)
	case *Location:
		if v == nil {
			return Location{}, false
		}
		return checked(*v)
	case map[string]any:
		return fromMap(v)
	case map[string]string:
		m := make(map[string]any, len(v))
		for key, value := range v {
			m[key] = value
		}
		return fromMap(m)
	default:
		return Location{}, false
	}
}

func fromJSON(raw any) (Location, bool) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		return Location{}, false
	}

	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		return Location{}, false
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil {
		return Location{}, false
	}
	return fromMap(m)
}

func fromLegacy(raw any) (Location, bool) {
	s, ok := raw.(string)
	if !ok {
		return Location{}, false
	}

	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return Location{}, false
	}

	lat, ok := parseFloat(s[:idx])
	if !ok {
		return Location{}, false
	}
	lng, ok := parseFloat(s[idx+1:])
	if !ok {
		return Location{}, false
	}

	return checked(Location{Lat: lat, Lng: lng})
}

func fromMap(m map[string]any) (Location, bool) {
	if m == nil {
		return Location{}, false
	}

	lat, ok := toFloat(m["lat"])
	if !ok {
		return Location{}, false
	}
	lng, ok := toFloat(m["lng"])
	if !ok {
		return Location{}, false
	}

	loc := Location{Lat: lat, Lng: lng}

	if accuracy, ok := toFloat(m["accuracy"]); ok && accuracy >= 0 {
		loc.Accuracy = &accuracy
	}
	if address, ok := m["address"].(string); ok {
		loc.Address = strings.TrimSpace(address)
	}

	capturedRaw, exists := m["captured_at"]
	if !exists {
		capturedRaw = m["capturedAt"]
	}
	if capturedAt, ok := toTime(capturedRaw); ok {
		loc.CapturedAt = &capturedAt
	}

	return checked(loc)
}

func checked(loc Location) (Location, bool) {
	if math.IsNaN(loc.Lat) || math.IsNaN(loc.Lng) || !loc.valid() {
		return Location{}, false
	}
	return loc, true
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		return parseFloat(n.String())
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toTime accepts RFC3339 strings and epoch milliseconds.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(t)).UTC(), true
	default:
		return time.Time{}, false
	}
}
