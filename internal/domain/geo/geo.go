// Package geo provides the single geodesic distance function used for both
// radius filtering and nearest-first ordering, plus coordinate validation
// and the derived point geometry stored on catalog entries.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distance.
const EarthRadiusMeters = 6_371_000.0

// SRID4326 is the WGS 84 spatial reference identifier.
const SRID4326 = 4326

// Valid reports whether latitude is in [-90, 90] and longitude in [-180, 180].
func Valid(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Point derives the geometry for a coordinate pair. Callers must build it
// from the same write as the raw scalars so the two representations agree.
func Point(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID4326)
}

// Distance returns the great-circle (haversine) distance in meters between
// two points given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	la1 := radians(lat1)
	la2 := radians(lat2)
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
