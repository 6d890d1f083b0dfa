package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fremont bridge ends, seattle
var (
	north = NewCoordinate(47.6521, -122.3497)
	south = NewCoordinate(47.6475, -122.3497)
)

func TestDistances(t *testing.T) {
	hav := CalculateHaversineDistance(north.Lat, north.Lon, south.Lat, south.Lon) * 1000
	s2d := S2Distance(north, south)

	assert.InDelta(t, 511.5, hav, 1.0)
	assert.InDelta(t, hav, s2d, 0.5)
	assert.InDelta(t, s2d, Length([]Coordinate{north, south}), 1.0)
	assert.Zero(t, S2Distance(north, north))
}

func TestGetDestinationPoint(t *testing.T) {
	lat, lon := GetDestinationPoint(south.Lat, south.Lon, 0, 0.5115)
	assert.InDelta(t, north.Lat, lat, 1e-4)
	assert.InDelta(t, north.Lon, lon, 1e-6)

	lower, upper := BoundingBox(south.Lat, south.Lon, 1)
	assert.Less(t, lower.Lat, south.Lat)
	assert.Less(t, lower.Lon, south.Lon)
	assert.Greater(t, upper.Lat, south.Lat)
	assert.Greater(t, upper.Lon, south.Lon)
}

func TestProjectPointToLine(t *testing.T) {
	mid := NewCoordinate(47.6498, -122.3480)
	p := ProjectPointToLineCoord(north, south, mid)
	assert.InDelta(t, -122.3497, p.Lon, 1e-6)
	assert.InDelta(t, 47.6498, p.Lat, 1e-4)
	assert.InDelta(t, S2Distance(mid, p), PointLinePerpendicularDistance(north, south, mid), 1e-9)
}

func TestPolyline(t *testing.T) {
	coords := []Coordinate{NewCoordinate(38.5, -120.2), NewCoordinate(40.7, -120.95), NewCoordinate(43.252, -126.453)}
	enc := EncodePolyline(coords)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", enc)

	dec, err := DecodePolyline(enc)
	require.NoError(t, err)
	require.Len(t, dec, 3)
	for i := range coords {
		assert.InDelta(t, coords[i].Lat, dec[i].Lat, 1e-5)
		assert.InDelta(t, coords[i].Lon, dec[i].Lon, 1e-5)
	}
}

func TestBounds(t *testing.T) {
	sw, ne := Bounds([]Coordinate{north, south, NewCoordinate(47.65, -122.36)})
	assert.Equal(t, NewCoordinate(47.6475, -122.36), sw)
	assert.Equal(t, NewCoordinate(47.6521, -122.3497), ne)

	sw, ne = Bounds(nil)
	assert.Equal(t, Coordinate{}, sw)
	assert.Equal(t, Coordinate{}, ne)

	assert.True(t, north.IsValid())
	assert.False(t, NewCoordinate(91, 0).IsValid())
}
