package transitiso

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"

	"github.com/transittopo/transitiso/cache"
)

// Dataset schemas come in two variants distinguished by a version marker:
// the legacy keyed-object form and the optimized positional-array form
// ("v":2). Both resolve at load time into the same in-memory graphs.
//
//	legacy transit:  {"nodes":[{"id","lat","lon","name"}],"edges":[{"from","to","weight"}]}
//	legacy walking:  {"nodes":[{"id","lat","lon"}],"edges":[{"from","to","time"}]}
//	optimized:       {"v":2,"nodes":[[lat,lon],...],"edges":[[fromIdx,toIdx,time],...]}
type rawDataset struct {
	Version int             `json:"v"`
	Nodes   json.RawMessage `json:"nodes"`
	Edges   json.RawMessage `json:"edges"`
}

const optimizedDatasetVersion = 2

type legacyTransitNode struct {
	ID   string  `json:"id"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

type legacyTransitEdge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

type legacyWalkingEdge struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Time float64 `json:"time"`
}

// LoadTransitDataset parses a transit graph dataset. The returned graph is
// fully built or the error leaves nothing half-replaced: callers swap their
// reference only on success.
func LoadTransitDataset(data []byte) (*TransitGraph, error) {
	st := time.Now()
	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errBadDatasetf("transit dataset is not JSON"), err.Error())
	}
	if raw.Nodes == nil || raw.Edges == nil {
		return nil, errBadDatasetf("transit dataset is missing nodes or edges")
	}

	graph := NewTransitGraph()
	if raw.Version == optimizedDatasetVersion {
		var nodes [][2]float64
		if err := json.Unmarshal(raw.Nodes, &nodes); err != nil {
			return nil, errors.Wrap(errBadDatasetf("optimized transit nodes malformed"), err.Error())
		}
		var edges [][3]float64
		if err := json.Unmarshal(raw.Edges, &edges); err != nil {
			return nil, errors.Wrap(errBadDatasetf("optimized transit edges malformed"), err.Error())
		}
		for i, n := range nodes {
			graph.AddNode(strconv.Itoa(i), n[0], n[1])
		}
		for _, e := range edges {
			from := strconv.Itoa(int(e[0]))
			to := strconv.Itoa(int(e[1]))
			if err := graph.AddWeightedEdge(from, to, e[2], true); err != nil {
				return nil, errors.Wrap(err, "Can't add transit edge")
			}
		}
	} else {
		var nodes []legacyTransitNode
		if err := json.Unmarshal(raw.Nodes, &nodes); err != nil {
			return nil, errors.Wrap(errBadDatasetf("legacy transit nodes malformed"), err.Error())
		}
		var edges []legacyTransitEdge
		if err := json.Unmarshal(raw.Edges, &edges); err != nil {
			return nil, errors.Wrap(errBadDatasetf("legacy transit edges malformed"), err.Error())
		}
		for _, n := range nodes {
			graph.AddNamedNode(n.ID, n.Name, n.Lat, n.Lon)
		}
		for _, e := range edges {
			if err := graph.AddWeightedEdge(e.From, e.To, e.Weight, true); err != nil {
				return nil, errors.Wrap(err, "Can't add transit edge")
			}
		}
	}
	fmt.Printf("Loaded transit dataset in %v\n\tNodes: %d, edges: %d\n", time.Since(st), graph.NumNodes(), graph.NumEdges())
	return graph, nil
}

// LoadWalkingDataset parses a walking network dataset and builds its
// snapping index. Same atomicity contract as LoadTransitDataset.
func LoadWalkingDataset(data []byte, walkSpeedMps, ceilingSeconds, gridCellMeters float64) (*WalkingNetwork, error) {
	st := time.Now()
	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errBadDatasetf("walking dataset is not JSON"), err.Error())
	}
	if raw.Nodes == nil || raw.Edges == nil {
		return nil, errBadDatasetf("walking dataset is missing nodes or edges")
	}

	network := NewWalkingNetwork(walkSpeedMps, ceilingSeconds)
	if raw.Version == optimizedDatasetVersion {
		var nodes [][2]float64
		if err := json.Unmarshal(raw.Nodes, &nodes); err != nil {
			return nil, errors.Wrap(errBadDatasetf("optimized walking nodes malformed"), err.Error())
		}
		var edges [][3]float64
		if err := json.Unmarshal(raw.Edges, &edges); err != nil {
			return nil, errors.Wrap(errBadDatasetf("optimized walking edges malformed"), err.Error())
		}
		for _, n := range nodes {
			network.AddNode(n[0], n[1])
		}
		for _, e := range edges {
			from, to := int32(e[0]), int32(e[1])
			if err := network.AddWeightedEdge(from, to, e[2], true); err != nil {
				return nil, errors.Wrap(err, "Can't add walking edge")
			}
		}
	} else {
		var nodes []legacyTransitNode
		if err := json.Unmarshal(raw.Nodes, &nodes); err != nil {
			return nil, errors.Wrap(errBadDatasetf("legacy walking nodes malformed"), err.Error())
		}
		var edges []legacyWalkingEdge
		if err := json.Unmarshal(raw.Edges, &edges); err != nil {
			return nil, errors.Wrap(errBadDatasetf("legacy walking edges malformed"), err.Error())
		}
		idx := make(map[string]int32, len(nodes))
		for _, n := range nodes {
			if _, ok := idx[n.ID]; ok {
				continue
			}
			idx[n.ID] = network.AddNode(n.Lat, n.Lon)
		}
		for _, e := range edges {
			from, okFrom := idx[e.From]
			to, okTo := idx[e.To]
			if !okFrom || !okTo {
				return nil, errBadDatasetf("walking edge references unknown node %q -> %q", e.From, e.To)
			}
			if err := network.AddWeightedEdge(from, to, e.Time, true); err != nil {
				return nil, errors.Wrap(err, "Can't add walking edge")
			}
		}
	}
	if err := network.BuildIndex(gridCellMeters); err != nil {
		return nil, errors.Wrap(err, "Can't index walking network")
	}
	fmt.Printf("Loaded walking dataset in %v\n\tNodes: %d\n", time.Since(st), network.NumNodes())
	return network, nil
}

// LoadObstacles parses the obstacle dataset: a GeoJSON FeatureCollection of
// Polygon or MultiPolygon geometries from an external geometry provider.
func LoadObstacles(data []byte) (*ObstacleMask, error) {
	st := time.Now()
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errBadDatasetf("obstacle dataset is not a GeoJSON feature collection"), err.Error())
	}
	mask := NewObstacleMask()
	for _, feature := range fc.Features {
		if feature.Geometry == nil {
			continue
		}
		switch {
		case feature.Geometry.IsPolygon():
			mask.addOrbPolygon(toOrbPolygon(feature.Geometry.Polygon))
		case feature.Geometry.IsMultiPolygon():
			for _, poly := range feature.Geometry.MultiPolygon {
				mask.addOrbPolygon(toOrbPolygon(poly))
			}
		}
	}
	fmt.Printf("Loaded obstacle dataset in %v\n\tPolygons: %d\n", time.Since(st), mask.NumPolygons())
	return mask, nil
}

// toOrbPolygon converts a GeoJSON ring list (lon,lat pairs) keeping the
// outer ring and any holes.
func toOrbPolygon(rings [][][]float64) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, ring := range rings {
		r := make(orb.Ring, 0, len(ring))
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			r = append(r, orb.Point{pt[0], pt[1]})
		}
		poly = append(poly, r)
	}
	return poly
}

// FetchDataset resolves raw dataset bytes through the injectable cache:
// cache hits are served directly, misses call fetch and store the payload
// under the key for ttl. Cache failures degrade to a direct fetch.
func FetchDataset(c cache.Cache, key string, ttl time.Duration, fetch func() ([]byte, error)) ([]byte, error) {
	if c != nil {
		if data, ok, err := c.Get(key); err == nil && ok {
			return data, nil
		}
	}
	data, err := fetch()
	if err != nil {
		return nil, errors.Wrapf(err, "Can't fetch dataset %q", key)
	}
	if c != nil {
		if err := c.Put(key, data, ttl); err != nil {
			fmt.Printf("Warning. Can not cache dataset %q: %s\n", key, err.Error())
		}
	}
	return data, nil
}
