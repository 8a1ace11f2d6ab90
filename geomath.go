package transitiso

import (
	"fmt"
	"math"
)

const (
	earthRadiusMeters = 6371000.0
	pi180             = math.Pi / 180.0
	pi180Rev          = 180.0 / math.Pi

	// Meters per degree of latitude under the equirectangular
	// approximation used by the spatial grid.
	metersPerDegree = 111320.0
)

// GeoPoint representation of point on Earth
type GeoPoint struct {
	Lat float64
	Lon float64
}

// String returns pretty printed value for GeoPoint
func (gp GeoPoint) String() string {
	return fmt.Sprintf("Lon: %f | Lat: %f", gp.Lon, gp.Lat)
}

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// HaversineMeters returns great-circle distance between two geo-points (meters)
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := degreesToRadians(lat1)
	rlon1 := degreesToRadians(lon1)
	rlat2 := degreesToRadians(lat2)
	rlon2 := degreesToRadians(lon2)
	diffLat := rlat2 - rlat1
	diffLon := rlon2 - rlon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return c * earthRadiusMeters
}

// greatCircleMeters returns distance between two geo-points (meters)
func greatCircleMeters(p, q GeoPoint) float64 {
	return HaversineMeters(p.Lat, p.Lon, q.Lat, q.Lon)
}

// getSphericalLengthMeters returns length for given line (meters)
func getSphericalLengthMeters(line []GeoPoint) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += greatCircleMeters(line[i-1], line[i])
	}
	return totalLength
}
