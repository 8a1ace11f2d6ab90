package transitiso

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	geojson "github.com/paulmach/go.geojson"
)

func exportGraph(t *testing.T) *TransitGraph {
	t.Helper()
	g := NewTransitGraph()
	g.AddNamedNode("a", "Alpha", 0, 0)
	g.AddNamedNode("b", "Beta", 0, 0.001)
	if err := g.AddWeightedEdge("a", "b", 60, true); err != nil {
		t.Fatalf("AddWeightedEdge failed: %v", err)
	}
	return g
}

func TestExportToCSV(t *testing.T) {
	g := exportGraph(t)
	base := filepath.Join(t.TempDir(), "graph.csv")
	if err := g.ExportToCSV(base); err != nil {
		t.Fatalf("ExportToCSV failed: %v", err)
	}

	stations, err := os.Open(strings.Replace(base, ".csv", "_stations.csv", 1))
	if err != nil {
		t.Fatalf("Stations file must exist: %v", err)
	}
	defer stations.Close()
	r := csv.NewReader(stations)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Stations file must be valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Stations file must hold a header and 2 rows, but got %d", len(rows))
	}
	if rows[1][0] != "a" || rows[1][1] != "Alpha" {
		t.Errorf("First station row must be a;Alpha, but got %v", rows[1])
	}
	if !strings.HasPrefix(rows[1][4], "POINT(") {
		t.Errorf("Geometry must be WKT, but got %q", rows[1][4])
	}

	edges, err := os.Open(strings.Replace(base, ".csv", "_edges.csv", 1))
	if err != nil {
		t.Fatalf("Edges file must exist: %v", err)
	}
	defer edges.Close()
	r = csv.NewReader(edges)
	r.Comma = ';'
	rows, err = r.ReadAll()
	if err != nil {
		t.Fatalf("Edges file must be valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Edges file must hold a header and 1 row, but got %d", len(rows))
	}
	if rows[1][0] != "a" || rows[1][1] != "b" {
		t.Errorf("Edge row must be a;b, but got %v", rows[1])
	}
	if !strings.HasPrefix(rows[1][3], "LINESTRING") {
		t.Errorf("Geometry must be WKT, but got %q", rows[1][3])
	}
}

func TestExportGeoJSON(t *testing.T) {
	g := exportGraph(t)
	data, err := g.ExportGeoJSON()
	if err != nil {
		t.Fatalf("ExportGeoJSON failed: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("Export must be a valid feature collection: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("Collection must hold 2 features, but got %d", len(fc.Features))
	}
	if id, _ := fc.Features[0].PropertyString("id"); id != "a" {
		t.Errorf("Feature id must be a, but got %q", id)
	}
	if name, _ := fc.Features[0].PropertyString("name"); name != "Alpha" {
		t.Errorf("Feature name must be Alpha, but got %q", name)
	}
}
