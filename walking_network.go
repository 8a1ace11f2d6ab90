package transitiso

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultWalkCeilingSeconds bounds the walking Dijkstra: nodes whose
	// tentative time would exceed it are pruned from the frontier.
	DefaultWalkCeilingSeconds = 3600.0

	// originEpsilonDegrees treats repeated origins within ~1m as the same
	// point, making ComputeFromOrigin a no-op for them.
	originEpsilonDegrees = 1e-5

	// seedSnapMeters bounds the snap of a query origin onto the network.
	seedSnapMeters = 500.0
	// lookupSnapMeters is the looser bound used when reading walking times
	// back out for arbitrary points.
	lookupSnapMeters = 800.0
)

// WalkingNetwork is the street-level walking graph, independent of the
// transit graph. It snaps arbitrary points to its nearest node and runs a
// single-source Dijkstra from an origin, bounded by a time ceiling.
type WalkingNetwork struct {
	nodes        []graphNode
	grid         *SpatialGrid[int32]
	gridCellM    float64
	walkSpeedMps float64
	ceilingSec   float64

	// Result of the last ComputeFromOrigin, cached against the origin used.
	times     []float64
	originLat float64
	originLon float64
	hasOrigin bool
}

// NewWalkingNetwork returns an empty walking network. Non-positive speed or
// ceiling fall back to the defaults.
func NewWalkingNetwork(walkSpeedMps, ceilingSeconds float64) *WalkingNetwork {
	if walkSpeedMps <= 0 {
		walkSpeedMps = DefaultWalkSpeedMps
	}
	if ceilingSeconds <= 0 {
		ceilingSeconds = DefaultWalkCeilingSeconds
	}
	return &WalkingNetwork{
		walkSpeedMps: walkSpeedMps,
		ceilingSec:   ceilingSeconds,
	}
}

// AddNode appends a node and returns its index.
func (w *WalkingNetwork) AddNode(lat, lon float64) int32 {
	w.nodes = append(w.nodes, graphNode{lat: lat, lon: lon})
	return int32(len(w.nodes) - 1)
}

// NumNodes returns the number of network nodes.
func (w *WalkingNetwork) NumNodes() int {
	return len(w.nodes)
}

// AddWeightedEdge connects two nodes with a travel time in seconds.
func (w *WalkingNetwork) AddWeightedEdge(from, to int32, weightSeconds float64, directed bool) error {
	if from < 0 || int(from) >= len(w.nodes) || to < 0 || int(to) >= len(w.nodes) {
		return errors.Errorf("edge references unknown node: %d -> %d", from, to)
	}
	if weightSeconds < 0 || math.IsNaN(weightSeconds) || math.IsInf(weightSeconds, 0) {
		return errBadConfigf("edge weight must be finite and non-negative, got %f", weightSeconds)
	}
	w.nodes[from].edges = append(w.nodes[from].edges, edgeTo{to: to, weight: weightSeconds})
	if !directed {
		w.nodes[to].edges = append(w.nodes[to].edges, edgeTo{to: from, weight: weightSeconds})
	}
	return nil
}

// BuildIndex (re)builds the snapping grid. Must be called after the node set
// changes and before any snapping or origin computation.
func (w *WalkingNetwork) BuildIndex(cellSizeMeters float64) error {
	grid, err := NewSpatialGrid[int32](cellSizeMeters)
	if err != nil {
		return errors.Wrap(err, "Can't build walking grid")
	}
	for i := range w.nodes {
		grid.Insert(w.nodes[i].lat, w.nodes[i].lon, int32(i))
	}
	w.grid = grid
	w.gridCellM = cellSizeMeters
	w.times = nil
	w.hasOrigin = false
	return nil
}

// FindNearestNode expands outward in ring order over grid cells and returns
// the closest node found within maxSearchMeters, or false if the search
// exhausts without a hit. After a hit the search keeps expanding until no
// farther ring can hold a closer node: a node in ring r is at least
// (r-1) cells away, so rings beyond bestDist/cellSize + 1 cannot improve.
func (w *WalkingNetwork) FindNearestNode(lat, lon, maxSearchMeters float64) (int32, bool) {
	if w.grid == nil || len(w.nodes) == 0 || maxSearchMeters <= 0 {
		return 0, false
	}
	maxRing := int(math.Ceil(maxSearchMeters/w.gridCellM)) + 1
	best := int32(-1)
	bestDist := math.Inf(1)
	for ring := 0; ring <= maxRing; ring++ {
		if best >= 0 && ring > int(math.Ceil(bestDist/w.gridCellM))+1 {
			break
		}
		for _, idx := range w.grid.QueryRing(lat, lon, ring) {
			node := &w.nodes[idx]
			d := HaversineMeters(lat, lon, node.lat, node.lon)
			if d > maxSearchMeters {
				continue
			}
			if d < bestDist {
				bestDist = d
				best = idx
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// ComputeFromOrigin snaps the origin to its nearest node and runs a bounded
// single-source Dijkstra from it. A repeated call with the same origin
// (within a small epsilon) is a no-op. If the origin cannot be snapped the
// previous result is discarded and every lookup reports unreachable.
func (w *WalkingNetwork) ComputeFromOrigin(lat, lon float64) {
	if w.hasOrigin &&
		math.Abs(lat-w.originLat) < originEpsilonDegrees &&
		math.Abs(lon-w.originLon) < originEpsilonDegrees {
		return
	}
	w.originLat = lat
	w.originLon = lon
	w.hasOrigin = true
	w.times = nil

	seed, ok := w.FindNearestNode(lat, lon, seedSnapMeters)
	if !ok {
		return
	}

	dist := make([]float64, len(w.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	seedTime := HaversineMeters(lat, lon, w.nodes[seed].lat, w.nodes[seed].lon) / w.walkSpeedMps
	if seedTime > w.ceilingSec {
		return
	}
	dist[seed] = seedTime

	frontier := NewPriorityFrontier()
	frontier.Push(seed, seedTime)
	for {
		idx, t, ok := frontier.Pop()
		if !ok {
			break
		}
		if t > dist[idx] {
			continue
		}
		for _, e := range w.nodes[idx].edges {
			candidate := t + e.weight
			if candidate > w.ceilingSec {
				// Pruned entirely, not merely skipped in output.
				continue
			}
			if candidate < dist[e.to] {
				dist[e.to] = candidate
				frontier.Push(e.to, candidate)
			}
		}
	}
	w.times = dist
}

// WalkingTime returns the walking time in seconds from the computed origin
// to the given point: the nearest node's precomputed time plus the egress
// walk from that node. Returns false when no network is loaded, no origin
// has been computed, or the nearest node is unreachable.
func (w *WalkingNetwork) WalkingTime(lat, lon float64) (float64, bool) {
	if w.times == nil {
		return 0, false
	}
	idx, ok := w.FindNearestNode(lat, lon, lookupSnapMeters)
	if !ok {
		return 0, false
	}
	t := w.times[idx]
	if math.IsInf(t, 1) {
		return 0, false
	}
	node := &w.nodes[idx]
	return t + HaversineMeters(lat, lon, node.lat, node.lon)/w.walkSpeedMps, true
}
