package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	assert.Equal(t, 0.0, HaversineDistance(-6.2, 106.8, -6.2, 106.8))

	// One degree of latitude is roughly 111 km.
	d := HaversineDistance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 50)

	// Symmetric
	assert.InDelta(t, HaversineDistance(23.88, 90.5, -6.2, 106.8), HaversineDistance(-6.2, 106.8, 23.88, 90.5), 1e-6)
}

func TestGeofence_Contains(t *testing.T) {
	fence := Geofence{Name: "office", Lat: -6.2, Lng: 106.8, RadiusMeters: 100}

	assert.True(t, fence.Contains(Location{Lat: -6.2, Lng: 106.8}))
	assert.True(t, fence.Contains(Location{Lat: -6.2005, Lng: 106.8}))
	assert.False(t, fence.Contains(Location{Lat: -6.21, Lng: 106.8}))
}

func TestInAnyFence(t *testing.T) {
	fences := []Geofence{
		{Name: "north", Lat: 10, Lng: 10, RadiusMeters: 50},
		{Name: "south", Lat: -10, Lng: -10, RadiusMeters: 50},
	}

	assert.True(t, InAnyFence(Location{Lat: -10, Lng: -10}, fences))
	assert.False(t, InAnyFence(Location{Lat: 0, Lng: 0}, fences))
	assert.False(t, InAnyFence(Location{Lat: 0, Lng: 0}, nil))
}
