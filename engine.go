package transitiso

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/transittopo/transitiso/config"
)

// Engine ties the computation core together for one loaded city: the
// transit graph with its propagated times, the walking network, the
// obstacle mask and the render worker.
//
// All mutation (dataset reload, origin change, viewport change) must happen
// on the controlling goroutine and completes before the next render is
// dispatched. Every render receives an immutable snapshot, so nothing is
// mutated concurrently by the worker and the controller.
type Engine struct {
	cfg config.Engine

	transit     *TransitGraph
	stations    []Station
	stationGrid *SpatialGrid[int]
	walking     *WalkingNetwork
	obstacles   *ObstacleMask

	times     NetworkTimes
	originLat float64
	originLon float64
	hasOrigin bool

	bounds      Bounds
	width       int
	height      int
	hasViewport bool
	raster      *ObstacleRaster

	worker   *RenderWorker
	onResult func(*RenderResult)

	// Render scheduling: one job in flight, latest request parameters
	// queued in the pending slot, stale responses discarded by sequence.
	renderMu    sync.Mutex
	seq         uint64
	inFlight    bool
	inFlightReq RenderRequest
	pending     *RenderRequest
	pendingSeq  uint64
}

// NewEngine creates an engine with the given tunables and starts its render
// worker. Call Close when done.
func NewEngine(cfg config.Engine) *Engine {
	e := &Engine{
		cfg:    cfg,
		worker: StartRenderWorker(),
	}
	go e.consumeResults()
	return e
}

// OnResult registers the completion callback. Results of superseded
// requests never reach it. Safe to call while renders are in flight; the
// callback takes effect for the next delivered outcome.
func (e *Engine) OnResult(fn func(*RenderResult)) {
	e.renderMu.Lock()
	e.onResult = fn
	e.renderMu.Unlock()
}

// Close stops the render worker.
func (e *Engine) Close() {
	e.worker.Close()
}

// LoadTransit replaces the transit graph from a dataset payload. On failure
// the previous graph stays fully intact.
func (e *Engine) LoadTransit(data []byte) error {
	graph, err := LoadTransitDataset(data)
	if err != nil {
		return err
	}
	if e.cfg.TransferDistanceM > 0 {
		if err := graph.GenerateTransferEdges(e.cfg.TransferDistanceM); err != nil {
			return errors.Wrap(err, "Can't generate transfer edges")
		}
	}
	grid, err := NewSpatialGrid[int](e.gridCell())
	if err != nil {
		return errors.Wrap(err, "Can't build station grid")
	}
	stations := graph.Stations()
	for i := range stations {
		grid.Insert(stations[i].Lat, stations[i].Lon, i)
	}
	e.transit = graph
	e.stations = stations
	e.stationGrid = grid
	e.times = nil
	if e.hasOrigin {
		e.propagateFromOrigin()
	}
	return nil
}

// LoadWalking replaces the walking network from a dataset payload. On
// failure the previous network stays fully intact.
func (e *Engine) LoadWalking(data []byte) error {
	network, err := LoadWalkingDataset(data, e.cfg.WalkSpeedMps, e.cfg.WalkCeilingSec, e.gridCell())
	if err != nil {
		return err
	}
	e.walking = network
	if e.hasOrigin {
		e.walking.ComputeFromOrigin(e.originLat, e.originLon)
	}
	return nil
}

// UseWalking installs an already-built walking network (PBF import).
func (e *Engine) UseWalking(network *WalkingNetwork) {
	e.walking = network
	if e.hasOrigin && network != nil {
		network.ComputeFromOrigin(e.originLat, e.originLon)
	}
}

// LoadObstacles replaces the obstacle polygons. The raster for the current
// viewport is regenerated immediately.
func (e *Engine) LoadObstacles(data []byte) error {
	mask, err := LoadObstacles(data)
	if err != nil {
		return err
	}
	e.obstacles = mask
	e.raster = nil
	if e.hasViewport {
		e.raster = mask.Rasterize(e.bounds, e.width, e.height)
	}
	return nil
}

// SetOrigin recomputes walking times and transit arrival times for a new
// query origin.
func (e *Engine) SetOrigin(lat, lon float64) {
	e.originLat = lat
	e.originLon = lon
	e.hasOrigin = true
	if e.walking != nil {
		e.walking.ComputeFromOrigin(lat, lon)
	}
	e.propagateFromOrigin()
}

func (e *Engine) propagateFromOrigin() {
	if e.transit == nil || e.stationGrid == nil {
		e.times = nil
		return
	}
	walkSpeed := e.walkSpeed()
	var entries []EntryNode
	for _, i := range e.stationGrid.QueryRadius(e.originLat, e.originLon, e.cfg.EntryRadiusM) {
		st := &e.stations[i]
		dist := HaversineMeters(e.originLat, e.originLon, st.Lat, st.Lon)
		if dist > e.cfg.EntryRadiusM {
			continue
		}
		entries = append(entries, EntryNode{ID: st.ID, WalkSeconds: dist / walkSpeed})
	}
	e.times = PropagateTimes(e.transit, entries, e.cfg.TransferPenaltySec)
}

// SetViewport sets the output viewport and regenerates the obstacle raster
// for it.
func (e *Engine) SetViewport(b Bounds, width, height int) error {
	if width <= 0 || height <= 0 {
		return errBadConfigf("viewport dimensions must be positive, got %dx%d", width, height)
	}
	if b.North <= b.South || b.East <= b.West {
		return errBadConfigf("viewport bounds are inverted")
	}
	e.bounds = b
	e.width = width
	e.height = height
	e.hasViewport = true
	e.raster = nil
	if e.obstacles != nil {
		e.raster = e.obstacles.Rasterize(b, width, height)
	}
	return nil
}

// TravelTime returns the minimum travel time in minutes from the current
// origin to the given point, combining walking and transit without
// rasterizing. Returns false when the point is unreachable or no origin is
// set.
func (e *Engine) TravelTime(lat, lon float64) (float64, bool) {
	if !e.hasOrigin {
		return 0, false
	}
	walkSpeed := e.walkSpeed()

	best := math.Inf(1)
	if e.walking != nil {
		if t, ok := e.walking.WalkingTime(lat, lon); ok {
			best = t
		}
	} else {
		best = HaversineMeters(e.originLat, e.originLon, lat, lon) / walkSpeed
	}

	if e.stationGrid != nil && e.times != nil {
		radius := e.stationRadius()
		egress := e.egressFactor()
		for _, i := range e.stationGrid.QueryRadius(lat, lon, radius) {
			st := &e.stations[i]
			arrival, ok := e.times[st.ID]
			if !ok {
				continue
			}
			dist := HaversineMeters(st.Lat, st.Lon, lat, lon)
			if dist > radius {
				continue
			}
			if t := arrival + dist/walkSpeed*egress; t < best {
				best = t
			}
		}
	}

	if math.IsInf(best, 1) {
		return 0, false
	}
	return best / 60.0, true
}

// Snapshot assembles an immutable render request for the current origin,
// viewport and datasets.
func (e *Engine) Snapshot(preview bool) (RenderRequest, error) {
	if !e.hasOrigin {
		return RenderRequest{}, errBadConfigf("no origin set")
	}
	if !e.hasViewport {
		return RenderRequest{}, errBadConfigf("no viewport set")
	}
	pixelSize := e.cfg.PixelSize
	if pixelSize <= 0 {
		pixelSize = 4
	}
	obstacles := e.raster
	if preview {
		factor := e.cfg.PreviewPixelFactor
		if factor <= 0 {
			factor = 4
		}
		pixelSize *= factor
		obstacles = nil
	}

	var active []ActiveStation
	if e.stationGrid != nil && e.times != nil {
		for _, i := range e.stationGrid.QueryBBox(e.bounds.South, e.bounds.West, e.bounds.North, e.bounds.East) {
			st := &e.stations[i]
			arrival, ok := e.times[st.ID]
			if !ok {
				continue
			}
			active = append(active, ActiveStation{Lat: st.Lat, Lon: st.Lon, Seconds: arrival})
		}
	}

	return RenderRequest{
		Width:               e.width,
		Height:              e.height,
		PixelSize:           pixelSize,
		Opacity:             e.cfg.Opacity,
		MaxTimeMinutes:      e.cfg.MaxMinutes,
		Bands:               e.cfg.Bands,
		OriginLat:           e.originLat,
		OriginLon:           e.originLon,
		Bounds:              e.bounds,
		Stations:            active,
		Obstacles:           obstacles,
		Walking:             BuildWalkingGrid(e.walking, e.bounds, e.width, e.height, pixelSize),
		Preview:             preview,
		WalkSpeedMps:        e.walkSpeed(),
		EgressFactor:        e.egressFactor(),
		StationRadiusMeters: e.stationRadius(),
	}, nil
}

// RequestRender queues an asynchronous render. If one is already in flight
// the request parameters are kept in the pending slot; only the latest
// pending request is dispatched once the in-flight job finishes, and stale
// results are never delivered.
func (e *Engine) RequestRender(preview bool) error {
	req, err := e.Snapshot(preview)
	if err != nil {
		return err
	}
	e.renderMu.Lock()
	defer e.renderMu.Unlock()
	e.seq++
	if e.inFlight {
		e.pending = &req
		e.pendingSeq = e.seq
		return nil
	}
	e.inFlight = true
	e.inFlightReq = req
	e.worker.Submit(e.seq, req)
	return nil
}

// RenderSync performs the rasterization on the calling goroutine. Also the
// fallback path when the worker fails.
func (e *Engine) RenderSync(preview bool) (*RenderResult, error) {
	req, err := e.Snapshot(preview)
	if err != nil {
		return nil, err
	}
	return RenderIsochrone(req)
}

func (e *Engine) consumeResults() {
	for outcome := range e.worker.Results() {
		e.handleOutcome(outcome)
	}
}

func (e *Engine) handleOutcome(outcome RenderOutcome) {
	e.renderMu.Lock()
	req := e.inFlightReq
	deliver := e.onResult
	superseded := e.pending != nil || outcome.Seq != e.seq
	e.renderMu.Unlock()

	result := outcome.Result
	if outcome.Err != nil && !superseded {
		// Worker failure: produce an equivalent result synchronously.
		if fallback, err := RenderIsochrone(req); err == nil {
			result = fallback
		} else {
			result = nil
		}
	}

	if !superseded && result != nil && deliver != nil {
		deliver(result)
	}

	e.renderMu.Lock()
	if e.pending != nil {
		next := *e.pending
		nextSeq := e.pendingSeq
		e.pending = nil
		e.inFlightReq = next
		e.renderMu.Unlock()
		e.worker.Submit(nextSeq, next)
		return
	}
	e.inFlight = false
	e.renderMu.Unlock()
}

func (e *Engine) walkSpeed() float64 {
	if e.cfg.WalkSpeedMps > 0 {
		return e.cfg.WalkSpeedMps
	}
	return DefaultWalkSpeedMps
}

func (e *Engine) egressFactor() float64 {
	if e.cfg.EgressFactor > 0 {
		return e.cfg.EgressFactor
	}
	return DefaultEgressFactor
}

func (e *Engine) stationRadius() float64 {
	if e.cfg.StationRadiusM > 0 {
		return e.cfg.StationRadiusM
	}
	return DefaultStationRadiusMeters
}

func (e *Engine) gridCell() float64 {
	if e.cfg.GridCellM > 0 {
		return e.cfg.GridCellM
	}
	return 250.0
}
