package transitiso

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/transittopo/transitiso/cache"
)

func TestLoadTransitDatasetLegacy(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "a", "lat": 0, "lon": 0, "name": "Alpha"},
			{"id": "b", "lat": 0, "lon": 0.001, "name": "Beta"}
		],
		"edges": [
			{"from": "a", "to": "b", "weight": 60}
		]
	}`)
	g, err := LoadTransitDataset(data)
	if err != nil {
		t.Fatalf("LoadTransitDataset failed: %v", err)
	}
	if g.NumNodes() != 2 {
		t.Errorf("Graph must hold 2 nodes, but got %d", g.NumNodes())
	}
	if w, ok := g.edgeWeight("a", "b"); !ok || w != 60 {
		t.Errorf("Edge a->b must have weight 60, but got %f", w)
	}
	// Dataset edges are directed; the reverse direction comes from its own
	// record when the feed has one.
	if _, ok := g.edgeWeight("b", "a"); ok {
		t.Errorf("Dataset edge must not imply a reverse edge")
	}
}

func TestLoadTransitDatasetOptimized(t *testing.T) {
	data := []byte(`{"v":2,"nodes":[[0,0],[0,0.001]],"edges":[[0,1,60]]}`)
	g, err := LoadTransitDataset(data)
	if err != nil {
		t.Fatalf("LoadTransitDataset failed: %v", err)
	}
	if g.NumNodes() != 2 {
		t.Errorf("Graph must hold 2 nodes, but got %d", g.NumNodes())
	}
	// Optimized nodes are keyed by their positional index.
	if w, ok := g.edgeWeight("0", "1"); !ok || w != 60 {
		t.Errorf("Edge 0->1 must have weight 60, but got %f", w)
	}
}

func TestLoadTransitDatasetRejectsMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`{not json`),
		[]byte(`{"nodes":[]}`),
		[]byte(`{"nodes":[],"edges":[{"from":"a","to":"b","weight":1}]}`),
		[]byte(`{"v":2,"nodes":[[0,0]],"edges":[[0,1,-5]]}`),
	}
	for i, data := range cases {
		if _, err := LoadTransitDataset(data); err == nil {
			t.Errorf("Case %d must be rejected", i)
		}
	}
}

func TestLoadWalkingDatasetLegacy(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "n1", "lat": 0, "lon": 0},
			{"id": "n2", "lat": 0.001, "lon": 0}
		],
		"edges": [
			{"from": "n1", "to": "n2", "time": 85}
		]
	}`)
	w, err := LoadWalkingDataset(data, 1.3, 3600, 250)
	if err != nil {
		t.Fatalf("LoadWalkingDataset failed: %v", err)
	}
	if w.NumNodes() != 2 {
		t.Errorf("Network must hold 2 nodes, but got %d", w.NumNodes())
	}
	if _, ok := w.FindNearestNode(0, 0, 100); !ok {
		t.Errorf("Snapping index must be built at load time")
	}
}

func TestLoadWalkingDatasetUnknownNode(t *testing.T) {
	data := []byte(`{
		"nodes": [{"id": "n1", "lat": 0, "lon": 0}],
		"edges": [{"from": "n1", "to": "ghost", "time": 85}]
	}`)
	if _, err := LoadWalkingDataset(data, 1.3, 3600, 250); err == nil {
		t.Errorf("Edge referencing an unknown node must be rejected")
	}
}

func TestLoadObstaclesGeoJSON(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"properties": {},
				"geometry": {
					"type": "Polygon",
					"coordinates": [[[0.003,0.003],[0.007,0.003],[0.007,0.007],[0.003,0.007],[0.003,0.003]]]
				}
			},
			{
				"type": "Feature",
				"properties": {},
				"geometry": {
					"type": "MultiPolygon",
					"coordinates": [
						[[[0.01,0.01],[0.02,0.01],[0.02,0.02],[0.01,0.01]]],
						[[[0.03,0.03],[0.04,0.03],[0.04,0.04],[0.03,0.03]]]
					]
				}
			}
		]
	}`)
	mask, err := LoadObstacles(data)
	if err != nil {
		t.Fatalf("LoadObstacles failed: %v", err)
	}
	if mask.NumPolygons() != 3 {
		t.Errorf("Mask must hold 3 polygons, but got %d", mask.NumPolygons())
	}
	if _, err := LoadObstacles([]byte(`{not geojson`)); err == nil {
		t.Errorf("Malformed payload must be rejected")
	}
}

func TestFetchDatasetUsesCache(t *testing.T) {
	c := cache.NewMemory()
	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	data, err := FetchDataset(c, "transit", time.Hour, fetch)
	if err != nil {
		t.Fatalf("FetchDataset failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Fetched payload must be returned, but got %q", data)
	}
	if _, err := FetchDataset(c, "transit", time.Hour, fetch); err != nil {
		t.Fatalf("FetchDataset failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Second fetch must be served from the cache, but fetch ran %d times", calls)
	}
}

func TestFetchDatasetPropagatesError(t *testing.T) {
	fetch := func() ([]byte, error) { return nil, errors.New("upstream down") }
	if _, err := FetchDataset(cache.Nop{}, "walking", 0, fetch); err == nil {
		t.Errorf("Fetch failure must be reported")
	}
	if _, err := FetchDataset(nil, "walking", 0, fetch); err == nil {
		t.Errorf("Nil cache must still propagate fetch failures")
	}
}
