package transitiso

import (
	"math"
)

// gridCell is an integer cell address computed from geographic coordinates
// via an equirectangular approximation.
type gridCell struct {
	X int
	Y int
}

type gridEntry[T any] struct {
	lat     float64
	lon     float64
	payload T
}

// SpatialGrid is a uniform-cell spatial index over geographic points. Each
// inserted entry lands in exactly one cell determined by its coordinates, so
// radius and bounding-box queries only have to scan a small neighborhood of
// cells instead of the whole point set.
//
// Radius queries return a candidate superset; callers needing exactness must
// re-filter by true distance. Bounding-box queries are exact.
type SpatialGrid[T any] struct {
	cellSizeMeters float64
	cells          map[gridCell][]gridEntry[T]
	total          int
}

// NewSpatialGrid returns an empty grid with the given cell size. Smaller
// cells give tighter candidate sets at the cost of more cells to scan.
func NewSpatialGrid[T any](cellSizeMeters float64) (*SpatialGrid[T], error) {
	if cellSizeMeters <= 0 || math.IsNaN(cellSizeMeters) || math.IsInf(cellSizeMeters, 0) {
		return nil, errBadConfigf("cell size must be a positive number of meters, got %f", cellSizeMeters)
	}
	return &SpatialGrid[T]{
		cellSizeMeters: cellSizeMeters,
		cells:          make(map[gridCell][]gridEntry[T]),
	}, nil
}

func (g *SpatialGrid[T]) cellOf(lat, lon float64) gridCell {
	x := int(math.Floor(lat * metersPerDegree / g.cellSizeMeters))
	y := int(math.Floor(lon * metersPerDegree * math.Cos(degreesToRadians(lat)) / g.cellSizeMeters))
	return gridCell{X: x, Y: y}
}

// Insert adds a payload at the given coordinates.
func (g *SpatialGrid[T]) Insert(lat, lon float64, payload T) {
	cell := g.cellOf(lat, lon)
	g.cells[cell] = append(g.cells[cell], gridEntry[T]{lat: lat, lon: lon, payload: payload})
	g.total++
}

// Clear drops every entry, keeping the configured cell size.
func (g *SpatialGrid[T]) Clear() {
	g.cells = make(map[gridCell][]gridEntry[T])
	g.total = 0
}

// Len returns the number of inserted entries.
func (g *SpatialGrid[T]) Len() int {
	return g.total
}

// QueryRadius returns every payload that may lie within radiusMeters of the
// given point. The result is a superset: entries from all visited cells are
// returned without exact distance filtering. A non-positive radius yields an
// empty result.
func (g *SpatialGrid[T]) QueryRadius(lat, lon, radiusMeters float64) []T {
	if radiusMeters <= 0 {
		return nil
	}
	center := g.cellOf(lat, lon)
	span := int(math.Ceil(radiusMeters/g.cellSizeMeters)) + 1
	var out []T
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			entries := g.cells[gridCell{X: center.X + dx, Y: center.Y + dy}]
			for i := range entries {
				out = append(out, entries[i].payload)
			}
		}
	}
	return out
}

// QueryNeighborhood returns payloads from the 3x3 block of cells around the
// cell containing the given point. Used by transfer-edge generation, where
// the cell size equals the search threshold so the block covers it fully.
func (g *SpatialGrid[T]) QueryNeighborhood(lat, lon float64) []T {
	center := g.cellOf(lat, lon)
	var out []T
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			entries := g.cells[gridCell{X: center.X + dx, Y: center.Y + dy}]
			for i := range entries {
				out = append(out, entries[i].payload)
			}
		}
	}
	return out
}

// QueryRing returns payloads from cells at exactly the given Chebyshev
// distance from the cell containing the point. Ring 0 is the center cell
// itself. Used for expanding nearest-neighbor searches.
func (g *SpatialGrid[T]) QueryRing(lat, lon float64, ring int) []T {
	center := g.cellOf(lat, lon)
	if ring < 0 {
		return nil
	}
	if ring == 0 {
		entries := g.cells[center]
		out := make([]T, 0, len(entries))
		for i := range entries {
			out = append(out, entries[i].payload)
		}
		return out
	}
	var out []T
	collect := func(x, y int) {
		entries := g.cells[gridCell{X: x, Y: y}]
		for i := range entries {
			out = append(out, entries[i].payload)
		}
	}
	for dx := -ring; dx <= ring; dx++ {
		collect(center.X+dx, center.Y-ring)
		collect(center.X+dx, center.Y+ring)
	}
	for dy := -ring + 1; dy <= ring-1; dy++ {
		collect(center.X-ring, center.Y+dy)
		collect(center.X+ring, center.Y+dy)
	}
	return out
}

// QueryBBox returns every payload whose coordinates fall inside the given
// geographic box. Entries are filtered to the true box before returning.
func (g *SpatialGrid[T]) QueryBBox(south, west, north, east float64) []T {
	if north < south || east < west {
		return nil
	}
	// Cell Y depends on cos(lat), so derive the Y range from both the
	// north and south box edges and take the widest span.
	corners := []gridCell{
		g.cellOf(south, west),
		g.cellOf(south, east),
		g.cellOf(north, west),
		g.cellOf(north, east),
	}
	minX, maxX := corners[0].X, corners[0].X
	minY, maxY := corners[0].Y, corners[0].Y
	for _, c := range corners[1:] {
		if c.X < minX {
			minX = c.X
		}
		if c.X > maxX {
			maxX = c.X
		}
		if c.Y < minY {
			minY = c.Y
		}
		if c.Y > maxY {
			maxY = c.Y
		}
	}
	var out []T
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			entries := g.cells[gridCell{X: x, Y: y}]
			for i := range entries {
				e := entries[i]
				if e.lat < south || e.lat > north || e.lon < west || e.lon > east {
					continue
				}
				out = append(out, e.payload)
			}
		}
	}
	return out
}
