package transitiso

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// PrepareWKTPoint Creates WKT Point from given point
func PrepareWKTPoint(pt GeoPoint) string {
	return fmt.Sprintf("POINT(%f %f)", pt.Lon, pt.Lat)
}

// PrepareGeoJSONPoint Creates GeoJSON Point from given point
func PrepareGeoJSONPoint(pt GeoPoint) string {
	b, err := geojson.NewPointGeometry([]float64{pt.Lon, pt.Lat}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// ExportToCSV dumps the loaded transit graph for debugging: one file for
// stations, one for edges, geometry in WKT.
func (g *TransitGraph) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameStations := fmt.Sprintf(fnameParts[0] + "_stations.csv")
	fnameEdges := fmt.Sprintf(fnameParts[0] + "_edges.csv")

	err := g.exportStationsToCSV(fnameStations)
	if err != nil {
		return errors.Wrap(err, "Can't export stations")
	}

	err = g.exportEdgesToCSV(fnameEdges)
	if err != nil {
		return errors.Wrap(err, "Can't export edges")
	}

	return nil
}

func (g *TransitGraph) exportStationsToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "name", "longitude", "latitude", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for i := range g.nodes {
		err = writer.Write([]string{
			g.keys[i],
			g.names[i],
			fmt.Sprintf("%f", g.nodes[i].lon),
			fmt.Sprintf("%f", g.nodes[i].lat),
			PrepareWKTPoint(GeoPoint{Lat: g.nodes[i].lat, Lon: g.nodes[i].lon}),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write station")
		}
	}
	return nil
}

func (g *TransitGraph) exportEdgesToCSV(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"from", "to", "weight_seconds", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for i := range g.nodes {
		for _, e := range g.nodes[i].edges {
			line := orb.LineString{
				{g.nodes[i].lon, g.nodes[i].lat},
				{g.nodes[e.to].lon, g.nodes[e.to].lat},
			}
			err = writer.Write([]string{
				g.keys[i],
				g.keys[e.to],
				fmt.Sprintf("%f", e.weight),
				wkt.MarshalString(line),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write edge")
			}
		}
	}
	return nil
}

// ExportGeoJSON returns the station set as a GeoJSON feature collection.
func (g *TransitGraph) ExportGeoJSON() ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for i := range g.nodes {
		feature := geojson.NewPointFeature([]float64{g.nodes[i].lon, g.nodes[i].lat})
		feature.SetProperty("id", g.keys[i])
		if g.names[i] != "" {
			feature.SetProperty("name", g.names[i])
		}
		fc.AddFeature(feature)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal stations")
	}
	return b, nil
}
