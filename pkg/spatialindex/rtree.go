package spatialindex

import (
	"math"

	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

const maxSearchResults = 64

type Rtree struct {
	tr *rtree.RTreeG[NodeEntry]
}

// NodeEntry is an indexed graph node.
type NodeEntry struct {
	id  string
	lat float64
	lon float64
}

func (ne NodeEntry) GetID() string {
	return ne.id
}

func (ne NodeEntry) GetCoordinate() geo.Coordinate {
	return geo.NewCoordinate(ne.lat, ne.lon)
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[NodeEntry]
	return &Rtree{
		tr: &tr,
	}
}

// Build. build r-tree, with each leaf having bounding box with radius boundingBoxRadius (in km) around a
// graph node
func (rt *Rtree) Build(graph *datastructure.Graph, boundingBoxRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...", zap.Int("nodes", graph.NumberOfNodes()))
	for _, n := range graph.GetNodes() {
		c := n.GetCoordinates()
		lower, upper := geo.BoundingBox(c.Lat, c.Lon, boundingBoxRadius)
		rt.tr.Insert([2]float64{lower.Lon, lower.Lat}, [2]float64{upper.Lon, upper.Lat},
			NodeEntry{id: n.GetID(), lat: c.Lat, lon: c.Lon})
	}
	log.Info("R-tree spatial index built.", zap.Int("entries", rt.tr.Len()))
}

func (rt *Rtree) Len() int {
	return rt.tr.Len()
}

// SearchWithinRadius search for the nodes whose boxes intersect the box of radius (in km) around the query
// point (qLat, qLon)
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []NodeEntry {
	lower, upper := geo.BoundingBox(qLat, qLon, radius)

	results := make([]NodeEntry, 0, 10)
	rt.tr.Search([2]float64{lower.Lon, lower.Lat}, [2]float64{upper.Lon, upper.Lat},
		func(min, max [2]float64, data NodeEntry) bool {
			results = append(results, data)
			return len(results) < maxSearchResults
		})
	return results
}

// Nearest returns the node closest to (qLat, qLon) by haversine distance among the candidates within radius
// km. ties go to the smaller id.
func (rt *Rtree) Nearest(qLat, qLon, radius float64) (NodeEntry, float64, bool) {
	candidates := rt.SearchWithinRadius(qLat, qLon, radius)
	best, bestDist, found := NodeEntry{}, math.Inf(1), false
	for _, c := range candidates {
		d := geo.CalculateHaversineDistance(qLat, qLon, c.lat, c.lon)
		if d < bestDist || (d == bestDist && c.id < best.id) {
			best, bestDist, found = c, d, true
		}
	}
	return best, bestDist, found
}
