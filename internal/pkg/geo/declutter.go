package geo

import "math"

const (
	DefaultProximityThreshold = 0.0001
	DefaultOffsetStep         = 0.0003
	DefaultMaxOffsetAttempts  = 10
)

// Point is one user's position on the supervisory map.
type Point struct {
	UserID   string
	Location Location
	// Offset is the attempt number used to separate this point; 0 means
	// it was placed at its reported coordinates.
	Offset int
}

// DeclutterOptions controls how near-identical points are separated.
// Threshold and OffsetStep are in degrees.
type DeclutterOptions struct {
	Threshold   float64
	OffsetStep  float64
	MaxAttempts int
}

// DefaultDeclutterOptions returns the options used by the team map.
func DefaultDeclutterOptions() DeclutterOptions {
	return DeclutterOptions{
		Threshold:   DefaultProximityThreshold,
		OffsetStep:  DefaultOffsetStep,
		MaxAttempts: DefaultMaxOffsetAttempts,
	}
}

// Declutter shifts points that sit on top of an already placed point.
// Points are processed in input order; an overlapping point is moved by
// OffsetStep*attempt on both axes until it is clear or MaxAttempts is
// reached, in which case it keeps its reported coordinates. The output has
// the same length and order as the input and the input is not modified.
func Declutter(points []Point, opts DeclutterOptions) []Point {
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}

	placed := make([]Point, 0, len(points))
	for _, p := range points {
		origin := p.Location
		candidate := origin
		attempt := 0

		for overlapsAny(candidate, placed, opts.Threshold) && attempt < opts.MaxAttempts {
			attempt++
			shift := opts.OffsetStep * float64(attempt)
			candidate = origin
			candidate.Lat = origin.Lat + shift
			candidate.Lng = origin.Lng + shift
		}

		out := Point{UserID: p.UserID, Location: candidate, Offset: attempt}
		if overlapsAny(candidate, placed, opts.Threshold) {
			// Give up and accept the overlap.
			out.Location = origin
			out.Offset = 0
		}
		placed = append(placed, out)
	}

	return placed
}

func overlapsAny(loc Location, placed []Point, threshold float64) bool {
	for _, other := range placed {
		if math.Abs(loc.Lat-other.Location.Lat) < threshold &&
			math.Abs(loc.Lng-other.Location.Lng) < threshold {
			return true
		}
	}
	return false
}
