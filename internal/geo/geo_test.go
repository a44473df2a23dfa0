package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersIdentity(t *testing.T) {
	pts := []Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 24.86, Lng: 67.00},
		{Lat: -33.87, Lng: 151.21},
	}
	for _, p := range pts {
		if d := DistanceMeters(p, p); d != 0 {
			t.Errorf("DistanceMeters(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceMetersSymmetry(t *testing.T) {
	a := Coordinate{Lat: 24.8607, Lng: 67.0011}
	b := Coordinate{Lat: 24.8615, Lng: 67.0099}
	ab := DistanceMeters(a, b)
	ba := DistanceMeters(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("asymmetric distance: %v vs %v", ab, ba)
	}
}

func TestDistanceMetersKnownValue(t *testing.T) {
	// One degree of latitude at the equator is roughly 111.2 km.
	a := Coordinate{Lat: 0, Lng: 0}
	b := Coordinate{Lat: 1, Lng: 0}
	d := DistanceMeters(a, b)
	if d < 111000 || d > 111400 {
		t.Errorf("equator degree distance = %v, want ~111195", d)
	}
}

func TestVerify(t *testing.T) {
	teacher := Coordinate{Lat: 0, Lng: 0}
	// ~40m and ~60m north of the teacher.
	near := Coordinate{Lat: 40.0 / 111195.0, Lng: 0}
	far := Coordinate{Lat: 60.0 / 111195.0, Lng: 0}

	tests := []struct {
		name    string
		student Coordinate
		radius  float64
		within  bool
	}{
		{name: "inside fence", student: near, radius: 50, within: true},
		{name: "outside fence", student: far, radius: 50, within: false},
		{name: "zero radius uses default", student: near, radius: 0, within: true},
		{name: "on the boundary counts in", student: teacher, radius: 50, within: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Verify(tt.student, teacher, tt.radius)
			if res.WithinRadius != tt.within {
				t.Errorf("Verify() within = %v (d=%.1fm), want %v", res.WithinRadius, res.DistanceMeters, tt.within)
			}
			if res.DistanceMeters < 0 {
				t.Errorf("negative distance %v", res.DistanceMeters)
			}
		})
	}
}
