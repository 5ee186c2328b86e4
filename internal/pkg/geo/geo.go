package geo

import "math"

const earthRadiusMeters = 6371000

// HaversineDistance returns the great-circle distance between two coordinates in meters.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLng := (lng2 - lng1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Geofence is a circular area a punch must fall inside.
type Geofence struct {
	Name         string
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

// Contains reports whether loc lies within the fence radius.
func (g Geofence) Contains(loc Location) bool {
	return HaversineDistance(loc.Lat, loc.Lng, g.Lat, g.Lng) <= g.RadiusMeters
}

// InAnyFence reports whether loc lies inside at least one fence.
// An empty fence list never matches.
func InAnyFence(loc Location, fences []Geofence) bool {
	for _, fence := range fences {
		if fence.Contains(loc) {
			return true
		}
	}
	return false
}
