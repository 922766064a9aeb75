package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// New validates and returns a coordinate.
func New(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("invalid coordinate (%g, %g)", lat, lng)
	}
	return c, nil
}

// Valid reports whether lat is in [-90,90] and lng in [-180,180]. NaN and Inf are invalid.
func (c Coordinate) Valid() bool {
	return ValidateCoordinates(c.Lat, c.Lng)
}

// String renders the coordinate as "lat, lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lng)
}

// DistanceKm returns the great-circle distance between a and b in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Haversine returns the great-circle distance in kilometers between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1r)*math.Cos(lat2r)*sinLon*sinLon
	// a can drift just outside [0,1] for antipodal points
	a = math.Min(1, math.Max(0, a))

	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
