package transitiso

import (
	"math"
)

// EntryNode seeds propagation: a station within the entry radius of the
// query origin, together with the walk-in time to reach it.
type EntryNode struct {
	ID          string
	WalkSeconds float64
}

// NetworkTimes maps station id to earliest arrival time in seconds.
// Absence of a key means the station is unreachable within propagation
// limits; consumers must treat missing keys as infinite time.
type NetworkTimes map[string]float64

// PropagateTimes runs multi-source Dijkstra over the transit graph. Every
// entry node is seeded with its walk-in time plus the transfer penalty; each
// relaxation adds the edge weight plus the fixed per-stop dwell. Once a node
// is popped with its true minimal time it is never improved again.
func PropagateTimes(g *TransitGraph, entries []EntryNode, transferPenaltySeconds float64) NetworkTimes {
	dist := make([]float64, len(g.nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
	}

	frontier := NewPriorityFrontier()
	for _, entry := range entries {
		idx, ok := g.index[entry.ID]
		if !ok {
			continue
		}
		t := entry.WalkSeconds + transferPenaltySeconds
		if t < dist[idx] {
			dist[idx] = t
			frontier.Push(idx, t)
		}
	}

	for {
		idx, t, ok := frontier.Pop()
		if !ok {
			break
		}
		if t > dist[idx] {
			// Stale entry, superseded by a better push.
			continue
		}
		for _, e := range g.nodes[idx].edges {
			candidate := t + e.weight + StopDwellSeconds
			if candidate < dist[e.to] {
				dist[e.to] = candidate
				frontier.Push(e.to, candidate)
			}
		}
	}

	times := make(NetworkTimes, len(g.nodes))
	for i, d := range dist {
		if math.IsInf(d, 1) {
			continue
		}
		times[g.keys[i]] = d
	}
	return times
}
