package transitiso

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/transittopo/transitiso/config"
)

var engineTransitJSON = []byte(`{
	"nodes": [
		{"id": "a", "lat": 0, "lon": 0, "name": "Alpha"},
		{"id": "b", "lat": 0, "lon": 0.02, "name": "Beta"}
	],
	"edges": [
		{"from": "a", "to": "b", "weight": 100}
	]
}`)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(config.DefaultEngine())
	t.Cleanup(e.Close)
	return e
}

func TestEngineTravelTimeDirectWalk(t *testing.T) {
	e := newTestEngine(t)
	e.SetOrigin(0, 0)

	// No walking network loaded: straight-line distance over walk speed.
	got, ok := e.TravelTime(0, 0.001)
	if !ok {
		t.Fatalf("Nearby point must be reachable")
	}
	want := HaversineMeters(0, 0, 0, 0.001) / 1.3 / 60.0 // about 85.5s
	if math.Abs(got-want) > 0.01 {
		t.Errorf("Direct walk time must be %f minutes, but got %f", want, got)
	}
}

func TestEngineTravelTimeViaTransit(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LoadTransit(engineTransitJSON); err != nil {
		t.Fatalf("LoadTransit failed: %v", err)
	}
	e.SetOrigin(0, 0)

	// Station b: 300s entry penalty + 100s ride + 15s dwell = 415s, which
	// beats the 2.2km direct walk.
	got, ok := e.TravelTime(0, 0.02)
	if !ok {
		t.Fatalf("Point at the far station must be reachable")
	}
	want := 415.0 / 60.0
	if math.Abs(got-want) > 0.01 {
		t.Errorf("Transit travel time must be %f minutes, but got %f", want, got)
	}
}

func TestEngineTravelTimeWithoutOrigin(t *testing.T) {
	e := newTestEngine(t)
	if _, ok := e.TravelTime(0, 0); ok {
		t.Errorf("TravelTime must report false before an origin is set")
	}
}

func TestEngineLoadTransitKeepsOldGraphOnFailure(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LoadTransit(engineTransitJSON); err != nil {
		t.Fatalf("LoadTransit failed: %v", err)
	}
	if err := e.LoadTransit([]byte("{not json")); err == nil {
		t.Fatalf("Malformed dataset must be rejected")
	}
	e.SetOrigin(0, 0)
	if _, ok := e.TravelTime(0, 0.02); !ok {
		t.Errorf("Previous graph must survive a failed reload")
	}
}

func TestEngineSnapshotPreview(t *testing.T) {
	e := newTestEngine(t)
	e.SetOrigin(0.005, 0.005)
	if err := e.SetViewport(Bounds{North: 0.01, South: 0, East: 0.01, West: 0}, 100, 100); err != nil {
		t.Fatalf("SetViewport failed: %v", err)
	}

	full, err := e.Snapshot(false)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	preview, err := e.Snapshot(true)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if preview.PixelSize != full.PixelSize*4 {
		t.Errorf("Preview pixel size must be %d, but got %d", full.PixelSize*4, preview.PixelSize)
	}
	if !preview.Preview || full.Preview {
		t.Errorf("Preview flag must follow the snapshot kind")
	}
	if preview.Obstacles != nil {
		t.Errorf("Preview snapshot must drop the obstacle raster")
	}
}

func TestEngineSnapshotRequiresOriginAndViewport(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Snapshot(false); err == nil {
		t.Errorf("Snapshot without an origin must fail")
	}
	e.SetOrigin(0, 0)
	if _, err := e.Snapshot(false); err == nil {
		t.Errorf("Snapshot without a viewport must fail")
	}
	if err := e.SetViewport(Bounds{North: 0, South: 0.01, East: 0.01, West: 0}, 100, 100); err == nil {
		t.Errorf("Inverted bounds must be rejected")
	}
}

func TestEngineAsyncRenderDelivers(t *testing.T) {
	e := newTestEngine(t)
	e.SetOrigin(0.005, 0.005)
	if err := e.SetViewport(Bounds{North: 0.01, South: 0, East: 0.01, West: 0}, 100, 100); err != nil {
		t.Fatalf("SetViewport failed: %v", err)
	}

	results := make(chan *RenderResult, 4)
	e.OnResult(func(r *RenderResult) { results <- r })
	if err := e.RequestRender(false); err != nil {
		t.Fatalf("RequestRender failed: %v", err)
	}
	select {
	case r := <-results:
		if r.Width != 100 || r.Height != 100 {
			t.Errorf("Result must carry the viewport dimensions")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Async render must deliver a result")
	}
}

func TestEngineOnResultRegisteredLate(t *testing.T) {
	e := newTestEngine(t)
	e.SetOrigin(0.005, 0.005)
	if err := e.SetViewport(Bounds{North: 0.01, South: 0, East: 0.01, West: 0}, 100, 100); err != nil {
		t.Fatalf("SetViewport failed: %v", err)
	}

	// First render completes with no callback registered; its result is
	// dropped without blocking the worker.
	if err := e.RequestRender(false); err != nil {
		t.Fatalf("RequestRender failed: %v", err)
	}

	// Registering mid-stream must take effect for later outcomes: the
	// second request is never superseded, so exactly its result (and
	// possibly the first, if it was still in flight) arrives.
	results := make(chan *RenderResult, 4)
	e.OnResult(func(r *RenderResult) { results <- r })
	if err := e.RequestRender(false); err != nil {
		t.Fatalf("RequestRender failed: %v", err)
	}
	select {
	case r := <-results:
		if r.Width != 100 || r.Height != 100 {
			t.Errorf("Result must carry the viewport dimensions")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Callback registered mid-stream must receive results")
	}
}

func TestEngineDiscardsStaleOutcome(t *testing.T) {
	e := newTestEngine(t)
	delivered := 0
	e.OnResult(func(*RenderResult) { delivered++ })

	e.seq = 5
	e.handleOutcome(RenderOutcome{Seq: 4, Result: &RenderResult{}})
	if delivered != 0 {
		t.Errorf("Stale outcome must be discarded")
	}
	e.handleOutcome(RenderOutcome{Seq: 5, Result: &RenderResult{}})
	if delivered != 1 {
		t.Errorf("Current outcome must be delivered, but got %d deliveries", delivered)
	}
}

func TestEngineFallsBackOnWorkerFailure(t *testing.T) {
	e := newTestEngine(t)
	var got *RenderResult
	e.OnResult(func(r *RenderResult) { got = r })

	e.seq = 2
	e.inFlightReq = baseRequest()
	e.handleOutcome(RenderOutcome{Seq: 2, Err: errors.New("worker crashed")})
	if got == nil {
		t.Fatalf("Worker failure must fall back to a synchronous render")
	}
	if got.Width != 100 || got.Height != 100 {
		t.Errorf("Fallback result must match the request dimensions")
	}
}
