package geo

import "math"

// earthRadiusM is the mean Earth radius used by the Haversine formula.
const earthRadiusM = 6371000.0

// DefaultRadiusM is the geofence radius applied when a session does not set one.
const DefaultRadiusM = 50.0

// Coordinate is an immutable WGS84 point in decimal degrees.
type Coordinate struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	AccuracyM float64 `json:"accuracy_m,omitempty"`
}

// DistanceMeters returns the great-circle distance between a and b in meters.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c
}

// Result is the outcome of a geofence check.
type Result struct {
	WithinRadius   bool    `json:"within_radius"`
	DistanceMeters float64 `json:"distance_meters"`
}

// Verify decides whether the student's claimed position falls inside the
// circular fence around the teacher's position. radiusM <= 0 falls back to
// DefaultRadiusM.
func Verify(student, teacher Coordinate, radiusM float64) Result {
	if radiusM <= 0 {
		radiusM = DefaultRadiusM
	}
	d := DistanceMeters(student, teacher)
	return Result{WithinRadius: d <= radiusM, DistanceMeters: d}
}
