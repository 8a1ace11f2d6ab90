package transitiso

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultEgressFactor inflates straight-line egress walks to account
	// for non-straight street paths.
	DefaultEgressFactor = 1.4
	// DefaultStationRadiusMeters is how far around a pixel the rasterizer
	// looks for reachable stations.
	DefaultStationRadiusMeters = 500.0
)

// Bounds is a geographic bounding box for a viewport.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// ActiveStation is a viewport-visible station with its propagated arrival
// time, part of the immutable render snapshot.
type ActiveStation struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Seconds float64 `json:"time"`
}

// WalkingGrid is a precomputed grid of walking times sampled at the pixel
// stride, handed to the render worker instead of the network itself so the
// snapshot stays immutable and copy-cheap. Unreachable samples hold +Inf.
type WalkingGrid struct {
	cols    int
	rows    int
	stride  int
	seconds []float64
}

// BuildWalkingGrid samples the walking network at every pixel block center.
// Returns nil when the network has no computed origin.
func BuildWalkingGrid(w *WalkingNetwork, b Bounds, width, height, stride int) *WalkingGrid {
	if w == nil || w.times == nil || width <= 0 || height <= 0 || stride <= 0 {
		return nil
	}
	cols := (width + stride - 1) / stride
	rows := (height + stride - 1) / stride
	grid := &WalkingGrid{
		cols:    cols,
		rows:    rows,
		stride:  stride,
		seconds: make([]float64, cols*rows),
	}
	for row := 0; row < rows; row++ {
		cy := row*stride + stride/2
		lat := b.North - (float64(cy)+0.5)*(b.North-b.South)/float64(height)
		for col := 0; col < cols; col++ {
			cx := col*stride + stride/2
			lon := b.West + (float64(cx)+0.5)*(b.East-b.West)/float64(width)
			if t, ok := w.WalkingTime(lat, lon); ok {
				grid.seconds[row*cols+col] = t
			} else {
				grid.seconds[row*cols+col] = math.Inf(1)
			}
		}
	}
	return grid
}

// Sample returns the walking time for the block containing the pixel.
func (g *WalkingGrid) Sample(px, py int) float64 {
	col := px / g.stride
	row := py / g.stride
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return math.Inf(1)
	}
	return g.seconds[row*g.cols+col]
}

// RenderRequest is the core<->worker protocol: an immutable snapshot of
// everything one rasterization needs.
type RenderRequest struct {
	Width          int
	Height         int
	PixelSize      int
	Opacity        float64
	MaxTimeMinutes float64
	Bands          int
	OriginLat      float64
	OriginLon      float64
	Bounds         Bounds
	Stations       []ActiveStation
	Obstacles      *ObstacleRaster // nil: no obstacle gating
	Walking        *WalkingGrid    // nil: straight-line direct walk
	Preview        bool

	// Zero values fall back to the package defaults.
	WalkSpeedMps        float64
	EgressFactor        float64
	StationRadiusMeters float64
}

// RenderResult is a completed raster: RGBA pixels, row-major.
type RenderResult struct {
	Pixels  []uint8
	Width   int
	Height  int
	Preview bool
}

func (req *RenderRequest) validate() error {
	if req.Width <= 0 || req.Height <= 0 {
		return errBadConfigf("raster dimensions must be positive, got %dx%d", req.Width, req.Height)
	}
	if req.PixelSize <= 0 {
		return errBadConfigf("pixel size must be positive, got %d", req.PixelSize)
	}
	if req.Bounds.North <= req.Bounds.South || req.Bounds.East <= req.Bounds.West {
		return errBadConfigf("viewport bounds are inverted or empty")
	}
	if req.MaxTimeMinutes <= 0 {
		return errBadConfigf("max time must be positive, got %f minutes", req.MaxTimeMinutes)
	}
	if req.Bands <= 0 {
		return errBadConfigf("band count must be positive, got %d", req.Bands)
	}
	if req.Opacity < 0 || req.Opacity > 1 {
		return errBadConfigf("opacity must be within [0,1], got %f", req.Opacity)
	}
	if req.StationRadiusMeters < 0 {
		return errBadConfigf("station radius must be non-negative, got %f", req.StationRadiusMeters)
	}
	return nil
}

// RenderIsochrone paints the time-band raster for the request: for every
// sampled pixel it combines the direct walking time and the best
// station-plus-egress transit time, takes the minimum and maps it to a color
// band. Preview renders skip obstacle line-of-sight checks.
func RenderIsochrone(req RenderRequest) (*RenderResult, error) {
	if err := req.validate(); err != nil {
		return nil, errors.Wrap(err, "Can't render")
	}
	walkSpeed := req.WalkSpeedMps
	if walkSpeed <= 0 {
		walkSpeed = DefaultWalkSpeedMps
	}
	egress := req.EgressFactor
	if egress <= 0 {
		egress = DefaultEgressFactor
	}
	stationRadius := req.StationRadiusMeters
	if stationRadius == 0 {
		stationRadius = DefaultStationRadiusMeters
	}

	stationGrid, err := NewSpatialGrid[int](stationRadius)
	if err != nil {
		return nil, errors.Wrap(err, "Can't index stations")
	}
	for i := range req.Stations {
		stationGrid.Insert(req.Stations[i].Lat, req.Stations[i].Lon, i)
	}

	b := req.Bounds
	lonPerPixel := (b.East - b.West) / float64(req.Width)
	latPerPixel := (b.North - b.South) / float64(req.Height)
	pixelX := func(lon float64) int { return int((lon - b.West) / lonPerPixel) }
	pixelY := func(lat float64) int { return int((b.North - lat) / latPerPixel) }

	originX := pixelX(req.OriginLon)
	originY := pixelY(req.OriginLat)

	checkSight := req.Obstacles != nil && !req.Preview

	pixels := make([]uint8, req.Width*req.Height*4)
	for by := 0; by < req.Height; by += req.PixelSize {
		cy := by + req.PixelSize/2
		lat := b.North - (float64(cy)+0.5)*latPerPixel
		for bx := 0; bx < req.Width; bx += req.PixelSize {
			cx := bx + req.PixelSize/2
			lon := b.West + (float64(cx)+0.5)*lonPerPixel

			// Direct walking time. The walking grid already models street
			// paths, so obstacle gating only applies to the straight-line
			// fallback.
			direct := math.Inf(1)
			if req.Walking != nil {
				direct = req.Walking.Sample(cx, cy)
			} else {
				d := HaversineMeters(req.OriginLat, req.OriginLon, lat, lon)
				if !checkSight || req.Obstacles.LineOfSight(originX, originY, cx, cy) {
					direct = d / walkSpeed
				}
			}

			// Best transit time through a nearby station.
			transit := math.Inf(1)
			for _, si := range stationGrid.QueryNeighborhood(lat, lon) {
				st := &req.Stations[si]
				exitDist := HaversineMeters(st.Lat, st.Lon, lat, lon)
				if exitDist > stationRadius {
					continue
				}
				t := st.Seconds + exitDist/walkSpeed*egress
				if t >= transit {
					continue
				}
				if checkSight && !req.Obstacles.LineOfSight(pixelX(st.Lon), pixelY(st.Lat), cx, cy) {
					continue
				}
				transit = t
			}

			best := math.Min(direct, transit)
			color := RGBA{}
			if !math.IsInf(best, 1) {
				color = BandColor(best/60.0, req.MaxTimeMinutes, req.Bands, req.Opacity)
			}
			fillBlock(pixels, req.Width, req.Height, bx, by, req.PixelSize, color)
		}
	}

	return &RenderResult{
		Pixels:  pixels,
		Width:   req.Width,
		Height:  req.Height,
		Preview: req.Preview,
	}, nil
}

// fillBlock fills a pixelSize x pixelSize block, clipped to the raster.
func fillBlock(pixels []uint8, width, height, bx, by, size int, c RGBA) {
	for y := by; y < by+size && y < height; y++ {
		base := (y*width + bx) * 4
		for x := bx; x < bx+size && x < width; x++ {
			pixels[base] = c.R
			pixels[base+1] = c.G
			pixels[base+2] = c.B
			pixels[base+3] = c.A
			base += 4
		}
	}
}
