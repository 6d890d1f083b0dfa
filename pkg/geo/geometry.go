package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	polyline "github.com/twpayne/go-polyline"
)

// LineString converts coordinates to an orb line string (x = lon, y = lat).
func LineString(coords []Coordinate) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = orb.Point{c.Lon, c.Lat}
	}
	return ls
}

// Bounds returns the (south-west, north-east) corners of coords.
func Bounds(coords []Coordinate) (Coordinate, Coordinate) {
	if len(coords) == 0 {
		return Coordinate{}, Coordinate{}
	}
	b := LineString(coords).Bound()
	return NewCoordinate(b.Min.Lat(), b.Min.Lon()), NewCoordinate(b.Max.Lat(), b.Max.Lon())
}

// Length of the polyline through coords in meters.
func Length(coords []Coordinate) float64 {
	return orbgeo.Length(LineString(coords))
}

// EncodePolyline encodes coords with the google polyline algorithm (precision 1e-5).
func EncodePolyline(coords []Coordinate) string {
	pts := make([][]float64, len(coords))
	for i, c := range coords {
		pts[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(pts))
}

func DecodePolyline(s string) ([]Coordinate, error) {
	pts, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, len(pts))
	for i, p := range pts {
		coords[i] = NewCoordinate(p[0], p[1])
	}
	return coords, nil
}
