package transitiso

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// DefaultWalkSpeedMps is the assumed pedestrian speed for transfer and
	// egress walks.
	DefaultWalkSpeedMps = 1.3
	// StopDwellSeconds is the fixed per-stop penalty applied during
	// propagation. Edge weights store pure travel time.
	StopDwellSeconds = 15.0
)

// edgeTo is one directed adjacency: target arena index plus weight in
// seconds. Neighbors are referenced by index, never by pointer, so the graph
// carries no ownership cycles.
type edgeTo struct {
	to     int32
	weight float64
}

type graphNode struct {
	lat   float64
	lon   float64
	edges []edgeTo
}

// Station is a transit node exposed to the rasterizer and the engine.
type Station struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// TransitGraph is a weighted graph of transit stations. Nodes live in a
// contiguous arena indexed by int32; external string ids are resolved
// through a lookup map. Mutation methods are only valid before the graph is
// handed to the propagator.
type TransitGraph struct {
	nodes []graphNode
	keys  []string
	names []string
	index map[string]int32
}

// NewTransitGraph returns an empty transit graph.
func NewTransitGraph() *TransitGraph {
	return &TransitGraph{
		index: make(map[string]int32),
	}
}

// AddNode registers a station. Duplicate ids are ignored.
func (g *TransitGraph) AddNode(id string, lat, lon float64) {
	g.AddNamedNode(id, "", lat, lon)
}

// AddNamedNode registers a station with a display name. Duplicate ids are
// ignored.
func (g *TransitGraph) AddNamedNode(id, name string, lat, lon float64) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = int32(len(g.nodes))
	g.nodes = append(g.nodes, graphNode{lat: lat, lon: lon})
	g.keys = append(g.keys, id)
	g.names = append(g.names, name)
}

// NumNodes returns the number of registered stations.
func (g *TransitGraph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of directed adjacencies.
func (g *TransitGraph) NumEdges() int {
	total := 0
	for i := range g.nodes {
		total += len(g.nodes[i].edges)
	}
	return total
}

// AddEdge connects two stations in both directions, weighting the edge by
// Haversine distance over the given speed.
func (g *TransitGraph) AddEdge(a, b string, speedMps float64) error {
	if speedMps <= 0 {
		return errBadConfigf("edge speed must be positive, got %f", speedMps)
	}
	ia, ok := g.index[a]
	if !ok {
		return errors.Errorf("unknown node %q", a)
	}
	ib, ok := g.index[b]
	if !ok {
		return errors.Errorf("unknown node %q", b)
	}
	dist := HaversineMeters(g.nodes[ia].lat, g.nodes[ia].lon, g.nodes[ib].lat, g.nodes[ib].lon)
	w := dist / speedMps
	g.setEdge(ia, ib, w)
	g.setEdge(ib, ia, w)
	return nil
}

// AddWeightedEdge connects two stations with a precomputed travel time in
// seconds. Directionality is explicit: with directed=false the reverse edge
// is set as well, otherwise the source data direction is trusted.
func (g *TransitGraph) AddWeightedEdge(a, b string, weightSeconds float64, directed bool) error {
	if weightSeconds < 0 || math.IsNaN(weightSeconds) || math.IsInf(weightSeconds, 0) {
		return errBadConfigf("edge weight must be finite and non-negative, got %f", weightSeconds)
	}
	ia, ok := g.index[a]
	if !ok {
		return errors.Errorf("unknown node %q", a)
	}
	ib, ok := g.index[b]
	if !ok {
		return errors.Errorf("unknown node %q", b)
	}
	g.setEdge(ia, ib, weightSeconds)
	if !directed {
		g.setEdge(ib, ia, weightSeconds)
	}
	return nil
}

// setEdge inserts or replaces the directed edge from->to.
func (g *TransitGraph) setEdge(from, to int32, weight float64) {
	edges := g.nodes[from].edges
	for i := range edges {
		if edges[i].to == to {
			edges[i].weight = weight
			return
		}
	}
	g.nodes[from].edges = append(edges, edgeTo{to: to, weight: weight})
}

// setEdgeIfFaster inserts the directed edge only when it improves on any
// existing one. An existing faster edge is never overwritten.
func (g *TransitGraph) setEdgeIfFaster(from, to int32, weight float64) {
	edges := g.nodes[from].edges
	for i := range edges {
		if edges[i].to == to {
			if weight < edges[i].weight {
				edges[i].weight = weight
			}
			return
		}
	}
	g.nodes[from].edges = append(edges, edgeTo{to: to, weight: weight})
}

// edgeWeight reports the directed edge weight between two external ids.
func (g *TransitGraph) edgeWeight(a, b string) (float64, bool) {
	ia, ok := g.index[a]
	if !ok {
		return 0, false
	}
	ib, ok := g.index[b]
	if !ok {
		return 0, false
	}
	for _, e := range g.nodes[ia].edges {
		if e.to == ib {
			return e.weight, true
		}
	}
	return 0, false
}

// GenerateTransferEdges adds short walking connections between stations
// within the given distance of each other, representing station-to-station
// transfer on foot at DefaultWalkSpeedMps. Candidate pairs are found through
// a spatial grid whose cell size equals the threshold, so each station only
// scans its 3x3 cell neighborhood instead of all pairs.
func (g *TransitGraph) GenerateTransferEdges(distanceThresholdMeters float64) error {
	if distanceThresholdMeters <= 0 {
		return errBadConfigf("transfer distance must be positive, got %f", distanceThresholdMeters)
	}
	grid, err := NewSpatialGrid[int32](distanceThresholdMeters)
	if err != nil {
		return errors.Wrap(err, "Can't build transfer grid")
	}
	for i := range g.nodes {
		grid.Insert(g.nodes[i].lat, g.nodes[i].lon, int32(i))
	}
	for i := range g.nodes {
		node := &g.nodes[i]
		for _, j := range grid.QueryNeighborhood(node.lat, node.lon) {
			if j == int32(i) {
				continue
			}
			other := &g.nodes[j]
			dist := HaversineMeters(node.lat, node.lon, other.lat, other.lon)
			if dist > distanceThresholdMeters {
				continue
			}
			g.setEdgeIfFaster(int32(i), j, dist/DefaultWalkSpeedMps)
		}
	}
	return nil
}

// Stations returns the station list exposed to the rasterizer.
func (g *TransitGraph) Stations() []Station {
	out := make([]Station, len(g.nodes))
	for i := range g.nodes {
		out[i] = Station{
			ID:   g.keys[i],
			Name: g.names[i],
			Lat:  g.nodes[i].lat,
			Lon:  g.nodes[i].lon,
		}
	}
	return out
}
