package transitiso

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// blockedAlphaThreshold marks a raster pixel as blocked; practically a
	// pixel fully inside a polygon.
	blockedAlphaThreshold = 128

	// sightStepPixels is the sampling step for line-of-sight checks.
	sightStepPixels = 8.0
)

// ObstacleMask holds the blocking polygons (water, buildings) for the loaded
// dataset. Polygons are kept in geographic coordinates and rasterized on
// demand into a per-viewport opacity buffer.
type ObstacleMask struct {
	polygons []orb.Polygon
	bounds   []orb.Bound
}

// NewObstacleMask returns an empty mask.
func NewObstacleMask() *ObstacleMask {
	return &ObstacleMask{}
}

// AddPolygon appends a blocking polygon given as an ordered vertex sequence.
// Rings with fewer than three vertices are ignored.
func (m *ObstacleMask) AddPolygon(vertices []GeoPoint) {
	if len(vertices) < 3 {
		return
	}
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, orb.Point{v.Lon, v.Lat})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	poly := orb.Polygon{ring}
	m.polygons = append(m.polygons, poly)
	m.bounds = append(m.bounds, poly.Bound())
}

// addOrbPolygon appends an already-built polygon (dataset loaders).
func (m *ObstacleMask) addOrbPolygon(poly orb.Polygon) {
	if len(poly) == 0 || len(poly[0]) < 3 {
		return
	}
	m.polygons = append(m.polygons, poly)
	m.bounds = append(m.bounds, poly.Bound())
}

// NumPolygons returns the number of loaded polygons.
func (m *ObstacleMask) NumPolygons() int {
	return len(m.polygons)
}

// Rasterize paints the polygons into a fresh opacity buffer sized to the
// viewport. The buffer must be regenerated whenever the viewport changes.
func (m *ObstacleMask) Rasterize(b Bounds, width, height int) *ObstacleRaster {
	raster := &ObstacleRaster{
		alpha:  make([]uint8, width*height),
		width:  width,
		height: height,
	}
	if width <= 0 || height <= 0 || len(m.polygons) == 0 {
		return raster
	}
	view := orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
	// Only polygons intersecting the viewport can block pixels.
	var active []int
	for i := range m.polygons {
		if m.bounds[i].Intersects(view) {
			active = append(active, i)
		}
	}
	if len(active) == 0 {
		return raster
	}
	lonStep := (b.East - b.West) / float64(width)
	latStep := (b.North - b.South) / float64(height)
	for y := 0; y < height; y++ {
		lat := b.North - (float64(y)+0.5)*latStep
		for x := 0; x < width; x++ {
			lon := b.West + (float64(x)+0.5)*lonStep
			pt := orb.Point{lon, lat}
			for _, i := range active {
				if !m.bounds[i].Contains(pt) {
					continue
				}
				if planar.PolygonContains(m.polygons[i], pt) {
					raster.alpha[y*width+x] = 255
					break
				}
			}
		}
	}
	return raster
}

// ObstacleRaster is a rasterized opacity buffer marking pixels blocked by
// obstacle polygons, used for line-of-sight gating.
type ObstacleRaster struct {
	alpha  []uint8
	width  int
	height int
}

// NewObstacleRaster wraps an existing alpha buffer, as received over the
// render worker boundary. Returns nil when the buffer does not match the
// dimensions.
func NewObstacleRaster(alpha []uint8, width, height int) *ObstacleRaster {
	if len(alpha) != width*height {
		return nil
	}
	return &ObstacleRaster{alpha: alpha, width: width, height: height}
}

// Alpha returns the underlying buffer for transport across the worker
// boundary. The buffer is treated as read-only during a render.
func (r *ObstacleRaster) Alpha() []uint8 {
	return r.alpha
}

// Blocked reports whether the pixel is inside an obstacle. Out-of-bounds
// pixels are not blocked.
func (r *ObstacleRaster) Blocked(x, y int) bool {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return false
	}
	return r.alpha[y*r.width+x] > blockedAlphaThreshold
}

// LineOfSight samples points along the segment between two pixels and
// reports whether none of them is blocked. Endpoints are included.
func (r *ObstacleRaster) LineOfSight(x0, y0, x1, y1 int) bool {
	dx := float64(x1 - x0)
	dy := float64(y1 - y0)
	length := max(absFloat(dx), absFloat(dy))
	steps := int(length/sightStepPixels) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(float64(x0) + dx*t)
		y := int(float64(y0) + dy*t)
		if r.Blocked(x, y) {
			return false
		}
	}
	return true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
