package usecases

import (
	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/geo"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
)

func (rs *RoutingService) snapOrigDestToNearbyNodes(origLat, origLon, dstLat, dstLon float64) (string, string, error) {
	orig, _, found := rs.spatialIndex.Nearest(origLat, origLon, rs.searchRadius)
	if !found {
		return "", "", util.WrapErrorf(ErrNoNearbyNode, util.ErrNotFound,
			"no origin node within %.3f km of %f,%f", rs.searchRadius, origLat, origLon)
	}

	dst, _, found := rs.spatialIndex.Nearest(dstLat, dstLon, rs.searchRadius)
	if !found {
		return "", "", util.WrapErrorf(ErrNoNearbyNode, util.ErrNotFound,
			"no destination node within %.3f km of %f,%f", rs.searchRadius, dstLat, dstLon)
	}

	return orig.GetID(), dst.GetID(), nil
}

func (rs *RoutingService) pathCoordinates(p datastructure.RoutePath) []geo.Coordinate {
	coords := make([]geo.Coordinate, 0, len(p.GetNodes()))
	for _, id := range p.GetNodes() {
		n, ok := rs.graph.GetNode(id)
		if !ok {
			continue
		}
		c := n.GetCoordinates()
		coords = append(coords, geo.NewCoordinate(c.Lat, c.Lon))
	}
	return coords
}
