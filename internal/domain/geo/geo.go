package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMeters is the mean radius of Earth used for Haversine distance.
const EarthRadiusMeters = 6_371_000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the coordinate ranges.
func (p Point) Valid() bool { return ValidateCoordinates(p.Lat, p.Lon) }

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Distance returns the great-circle distance in meters between p and q.
func Distance(p, q Point) float64 {
	return Haversine(p.Lat, p.Lon, q.Lat, q.Lon)
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Unit is a distance unit understood by the search index.
type Unit string

// Supported radius units.
const (
	Meters     Unit = "m"
	Kilometers Unit = "km"
	Miles      Unit = "mi"
	Feet       Unit = "ft"
)

var unitMeters = map[Unit]float64{
	Meters:     1,
	Kilometers: 1000,
	Miles:      1609.344,
	Feet:       0.3048,
}

// Radius is a distance with its original unit preserved.
type Radius struct {
	Value float64
	Unit  Unit
}

// Meters converts the radius to meters.
func (r Radius) Meters() float64 { return r.Value * unitMeters[r.Unit] }

// String renders the radius in its canonical "10km" form.
func (r Radius) String() string {
	return strconv.FormatFloat(r.Value, 'f', -1, 64) + string(r.Unit)
}

// ParseRadius parses "10km", "500m", "2.5mi", "300ft" or a bare number (meters).
func ParseRadius(s string) (Radius, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Radius{}, fmt.Errorf("radius is empty")
	}

	unit := Meters
	num := s
	// longest suffix first so "km" is not read as "m"
	for _, u := range []Unit{Kilometers, Miles, Feet, Meters} {
		if strings.HasSuffix(s, string(u)) {
			unit = u
			num = strings.TrimSpace(strings.TrimSuffix(s, string(u)))
			break
		}
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Radius{}, fmt.Errorf("invalid radius %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return Radius{}, fmt.Errorf("radius must be positive, got %q", s)
	}
	return Radius{Value: v, Unit: unit}, nil
}
