package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/geo"
	"github.com/lintang-b-s/bridgeroute/pkg/scoring"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"go.uber.org/zap"
)

var (
	ErrNoNearbyNode = errors.New("no road node near the given coordinate")
)

// BridgeCrossing is one movable bridge on a route.
type BridgeCrossing struct {
	BridgeID        string
	NodeID          string
	ETA             time.Time
	OpenProbability float64
}

type BridgeRoute struct {
	Rank           int
	Nodes          []string
	TravelTime     int // second
	Distance       int // meter
	Probability    float64
	LogProbability float64
	CompositeScore float64
	Crossings      []BridgeCrossing
	Polyline       string
	SouthWest      geo.Coordinate
	NorthEast      geo.Coordinate
}

// BridgeRoutes is the ranked answer of one routing request.
type BridgeRoutes struct {
	JourneyID           string
	StartNode           string
	EndNode             string
	DepartureTime       time.Time
	TotalPathsAnalyzed  int
	BestPathProbability float64
	NetworkProbability  float64
	Routes              []BridgeRoute
}

type RoutingService struct {
	log          *zap.Logger
	graph        *datastructure.Graph
	enumerator   PathEnumerator
	scorer       PathScorer
	spatialIndex SpatialIndex
	searchRadius float64 // km
}

func NewRoutingService(log *zap.Logger, graph *datastructure.Graph, enumerator PathEnumerator, scorer PathScorer,
	spatialIndex SpatialIndex, searchRadius float64) *RoutingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RoutingService{
		log:          log,
		graph:        graph,
		enumerator:   enumerator,
		scorer:       scorer,
		spatialIndex: spatialIndex,
		searchRadius: searchRadius,
	}
}

// ComputeBridgeRoutes snaps both coordinates to their nearest graph node and ranks the routes between them.
func (rs *RoutingService) ComputeBridgeRoutes(ctx context.Context, origLat, origLon, dstLat, dstLon float64,
	departure time.Time, k int) (BridgeRoutes, error) {
	from, to, err := rs.snapOrigDestToNearbyNodes(origLat, origLon, dstLat, dstLon)
	if err != nil {
		return BridgeRoutes{}, err
	}
	return rs.BridgeRoutesBetweenNodes(ctx, from, to, departure, k)
}

// BridgeRoutesBetweenNodes enumerates and scores the routes from -> to and returns the best k by composite
// score. k <= 0 keeps every route.
func (rs *RoutingService) BridgeRoutesBetweenNodes(ctx context.Context, from, to string, departure time.Time,
	k int) (BridgeRoutes, error) {
	paths, err := rs.enumerator.EnumeratePaths(from, to, rs.graph)
	if err != nil {
		return BridgeRoutes{}, err
	}
	if len(paths) == 0 && from != to {
		return BridgeRoutes{}, util.WrapErrorf(datastructure.ErrNoPathExists, util.ErrNotFound,
			"no route found from %q to %q", from, to)
	}

	journey, err := rs.scorer.AnalyzeJourney(ctx, paths, from, to, departure)
	if err != nil {
		return BridgeRoutes{}, err
	}

	ranked := rs.scorer.RankScores(journey.PathScores)
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}

	res := BridgeRoutes{
		JourneyID:           uuid.NewString(),
		StartNode:           from,
		EndNode:             to,
		DepartureTime:       departure,
		TotalPathsAnalyzed:  journey.TotalPathsAnalyzed,
		BestPathProbability: journey.BestPathProbability,
		NetworkProbability:  journey.NetworkProbability,
		Routes:              make([]BridgeRoute, 0, len(ranked)),
	}
	for i, sc := range ranked {
		res.Routes = append(res.Routes, rs.newBridgeRoute(i+1, sc))
	}

	rs.log.Info("bridge routes computed",
		zap.String("journey_id", res.JourneyID),
		zap.String("from", from), zap.String("to", to),
		zap.Int("paths", res.TotalPathsAnalyzed),
		zap.Float64("network_probability", res.NetworkProbability))
	return res, nil
}

func (rs *RoutingService) newBridgeRoute(rank int, sc scoring.PathScore) BridgeRoute {
	coords := rs.pathCoordinates(sc.Path)
	sw, ne := geo.Bounds(coords)

	crossings := make([]BridgeCrossing, 0, len(sc.BridgeETAs))
	for _, e := range sc.BridgeETAs {
		crossings = append(crossings, BridgeCrossing{
			BridgeID:        e.BridgeID,
			NodeID:          e.NodeID,
			ETA:             e.ArrivalTime,
			OpenProbability: sc.BridgeProbabilities[e.BridgeID],
		})
	}

	return BridgeRoute{
		Rank:           rank,
		Nodes:          sc.Path.GetNodes(),
		TravelTime:     sc.Path.TotalTravelTime(),
		Distance:       sc.Path.TotalDistance(),
		Probability:    sc.LinearProbability,
		LogProbability: sc.LogProbability,
		CompositeScore: sc.CompositeScore,
		Crossings:      crossings,
		Polyline:       geo.EncodePolyline(coords),
		SouthWest:      sw,
		NorthEast:      ne,
	}
}

func (rs *RoutingService) CacheStatistics() scoring.CacheStatistics {
	return rs.scorer.GetCacheStatistics()
}

func (rs *RoutingService) ClearCache() {
	rs.scorer.ClearCaches()
}
