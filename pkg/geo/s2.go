package geo

import (
	"github.com/golang/geo/s2"
)

// S2Distance is the great-circle distance in meters.
func S2Distance(a, b Coordinate) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * earthRadiusKM * 1000
}

// ProjectPointToLineCoord projects snap onto the great-circle segment (pointA, pointB).
func ProjectPointToLineCoord(pointA, pointB, snap Coordinate) Coordinate {
	pointAS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointA.Lat, pointA.Lon))
	pointBS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(pointB.Lat, pointB.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	projection := s2.Project(snapS2, pointAS2, pointBS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// PointLinePerpendicularDistance in meters.
func PointLinePerpendicularDistance(pointA, pointB, snap Coordinate) float64 {
	return S2Distance(snap, ProjectPointToLineCoord(pointA, pointB, snap))
}
