package transitiso

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	p1 := GeoPoint{
		Lon: 37.6417350769043,
		Lat: 55.751849391735284,
	}
	p2 := GeoPoint{
		Lon: 37.668514251708984,
		Lat: 55.73261980350401,
	}
	res := 2716.97 // meters
	d := HaversineMeters(p1.Lat, p1.Lon, p2.Lat, p2.Lon)
	if math.Abs(d-res) > 0.5 {
		t.Errorf("Haversine distance must be %f, but got %f", res, d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	pts := [][4]float64{
		{40.75, -73.98, 40.76, -73.99},
		{-33.86, 151.2, -33.87, 151.21},
		{0, 0, 0, 0.001},
		{89.9, 10, 89.8, -170},
	}
	for _, p := range pts {
		ab := HaversineMeters(p[0], p[1], p[2], p[3])
		ba := HaversineMeters(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("Haversine must be symmetric, but got %f and %f", ab, ba)
		}
	}
}

func TestHaversineZero(t *testing.T) {
	d := HaversineMeters(40.75, -73.98, 40.75, -73.98)
	if d != 0 {
		t.Errorf("Haversine of identical points must be 0, but got %f", d)
	}
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	// One degree of latitude on a 6371km sphere.
	res := earthRadiusMeters * math.Pi / 180.0
	d := HaversineMeters(0, 0, 1, 0)
	if math.Abs(d-res)/res > 1e-6 {
		t.Errorf("One degree of latitude must be %f meters, but got %f", res, d)
	}
}

func TestSphericalLength(t *testing.T) {
	line := []GeoPoint{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 0, Lon: 0.002},
	}
	segment := HaversineMeters(0, 0, 0, 0.001)
	total := getSphericalLengthMeters(line)
	if math.Abs(total-2*segment) > 1e-9 {
		t.Errorf("Line length must be %f, but got %f", 2*segment, total)
	}
	if getSphericalLengthMeters(line[:1]) != 0 {
		t.Errorf("Single point line must have zero length")
	}
}
