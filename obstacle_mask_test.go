package transitiso

import (
	"testing"
)

// testBounds is a 0.01 x 0.01 degree viewport.
var testBounds = Bounds{North: 0.01, South: 0, East: 0.01, West: 0}

func centerSquareMask() *ObstacleMask {
	m := NewObstacleMask()
	// Square occupying the middle of testBounds.
	m.AddPolygon([]GeoPoint{
		{Lat: 0.003, Lon: 0.003},
		{Lat: 0.003, Lon: 0.007},
		{Lat: 0.007, Lon: 0.007},
		{Lat: 0.007, Lon: 0.003},
	})
	return m
}

func TestRasterizeBlockedInside(t *testing.T) {
	m := centerSquareMask()
	r := m.Rasterize(testBounds, 100, 100)
	if !r.Blocked(50, 50) {
		t.Errorf("Pixel inside the polygon must be blocked")
	}
	if r.Blocked(10, 10) {
		t.Errorf("Pixel outside the polygon must not be blocked")
	}
	if r.Blocked(-5, 50) || r.Blocked(50, 200) {
		t.Errorf("Out-of-bounds pixels must not be blocked")
	}
}

func TestLineOfSightThroughPolygon(t *testing.T) {
	m := centerSquareMask()
	r := m.Rasterize(testBounds, 100, 100)

	// Fully inside the blocking square.
	if r.LineOfSight(45, 45, 55, 55) {
		t.Errorf("Segment fully inside a blocking polygon must be rejected")
	}
	// Fully outside any polygon.
	if !r.LineOfSight(5, 5, 25, 5) {
		t.Errorf("Segment fully outside any polygon must pass")
	}
	// Crossing the square.
	if r.LineOfSight(10, 50, 90, 50) {
		t.Errorf("Segment crossing a blocking polygon must be rejected")
	}
}

func TestEmptyMaskNeverBlocks(t *testing.T) {
	m := NewObstacleMask()
	r := m.Rasterize(testBounds, 50, 50)
	if r.Blocked(25, 25) {
		t.Errorf("Empty mask must not block any pixel")
	}
	if !r.LineOfSight(0, 0, 49, 49) {
		t.Errorf("Empty mask must pass every line of sight")
	}
}

func TestDegeneratePolygonIgnored(t *testing.T) {
	m := NewObstacleMask()
	m.AddPolygon([]GeoPoint{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}})
	if m.NumPolygons() != 0 {
		t.Errorf("Polygon with fewer than 3 vertices must be ignored, but got %d", m.NumPolygons())
	}
}

func TestObstacleRasterRoundTrip(t *testing.T) {
	m := centerSquareMask()
	r := m.Rasterize(testBounds, 64, 64)
	restored := NewObstacleRaster(r.Alpha(), 64, 64)
	if restored == nil {
		t.Fatalf("Alpha buffer must round-trip through the worker boundary")
	}
	if restored.Blocked(32, 32) != r.Blocked(32, 32) {
		t.Errorf("Restored raster must agree with the original")
	}
	if NewObstacleRaster(r.Alpha(), 10, 10) != nil {
		t.Errorf("Mismatched dimensions must be rejected")
	}
}
