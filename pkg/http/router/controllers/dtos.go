package controllers

import (
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/geo"
	"github.com/lintang-b-s/bridgeroute/pkg/http/usecases"
	"github.com/lintang-b-s/bridgeroute/pkg/scoring"
)

type bridgeRoutesRequest struct {
	OriginLat      float64   `json:"origin_lat" validate:"min=-90,max=90"`
	OriginLon      float64   `json:"origin_lon" validate:"min=-180,max=180"`
	DestinationLat float64   `json:"destination_lat" validate:"min=-90,max=90"`
	DestinationLon float64   `json:"destination_lon" validate:"min=-180,max=180"`
	DepartureTime  time.Time `json:"departure_time"`
	K              int       `json:"k" validate:"min=0,max=50"`
}

type nodeRoutesRequest struct {
	From          string    `json:"from" validate:"required,max=128"`
	To            string    `json:"to" validate:"required,max=128"`
	DepartureTime time.Time `json:"departure_time"`
	K             int       `json:"k" validate:"min=0,max=50"`
}

type bridgeCrossingResponse struct {
	BridgeID        string    `json:"bridge_id"`
	NodeID          string    `json:"node_id"`
	ETA             time.Time `json:"eta"`
	OpenProbability float64   `json:"open_probability"`
}

type bridgeRouteResponse struct {
	Rank           int                      `json:"rank"`
	Nodes          []string                 `json:"nodes"`
	TravelTime     int                      `json:"travel_time"`
	Distance       int                      `json:"distance"`
	Probability    float64                  `json:"probability"`
	LogProbability float64                  `json:"log_probability"`
	CompositeScore float64                  `json:"composite_score"`
	Bridges        []bridgeCrossingResponse `json:"bridges"`
	Path           string                   `json:"path"`
	BoundingBox    [2]geo.Coordinate        `json:"bounding_box"`
}

type bridgeRoutesResponse struct {
	JourneyID           string                `json:"journey_id"`
	StartNode           string                `json:"start_node"`
	EndNode             string                `json:"end_node"`
	DepartureTime       time.Time             `json:"departure_time"`
	TotalPathsAnalyzed  int                   `json:"total_paths_analyzed"`
	BestPathProbability float64               `json:"best_path_probability"`
	NetworkProbability  float64               `json:"network_probability"`
	Routes              []bridgeRouteResponse `json:"routes"`
}

func NewBridgeRoutesResponse(r usecases.BridgeRoutes) bridgeRoutesResponse {
	routes := make([]bridgeRouteResponse, 0, len(r.Routes))
	for _, route := range r.Routes {
		bridges := make([]bridgeCrossingResponse, 0, len(route.Crossings))
		for _, c := range route.Crossings {
			bridges = append(bridges, bridgeCrossingResponse{
				BridgeID:        c.BridgeID,
				NodeID:          c.NodeID,
				ETA:             c.ETA,
				OpenProbability: c.OpenProbability,
			})
		}
		routes = append(routes, bridgeRouteResponse{
			Rank:           route.Rank,
			Nodes:          route.Nodes,
			TravelTime:     route.TravelTime,
			Distance:       route.Distance,
			Probability:    route.Probability,
			LogProbability: route.LogProbability,
			CompositeScore: route.CompositeScore,
			Bridges:        bridges,
			Path:           route.Polyline,
			BoundingBox:    [2]geo.Coordinate{route.SouthWest, route.NorthEast},
		})
	}

	return bridgeRoutesResponse{
		JourneyID:           r.JourneyID,
		StartNode:           r.StartNode,
		EndNode:             r.EndNode,
		DepartureTime:       r.DepartureTime,
		TotalPathsAnalyzed:  r.TotalPathsAnalyzed,
		BestPathProbability: r.BestPathProbability,
		NetworkProbability:  r.NetworkProbability,
		Routes:              routes,
	}
}

type cacheStatisticsResponse struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

func NewCacheStatisticsResponse(st scoring.CacheStatistics) cacheStatisticsResponse {
	return cacheStatisticsResponse{
		Hits:    st.Hits,
		Misses:  st.Misses,
		HitRate: st.HitRate,
		Entries: st.Entries,
	}
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
