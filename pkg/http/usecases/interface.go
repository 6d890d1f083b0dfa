package usecases

import (
	"context"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/scoring"
	"github.com/lintang-b-s/bridgeroute/pkg/spatialindex"
)

type PathEnumerator interface {
	EnumeratePaths(from, to string, g *datastructure.Graph) ([]datastructure.RoutePath, error)
}

type PathScorer interface {
	AnalyzeJourney(ctx context.Context, paths []datastructure.RoutePath, startNode, endNode string,
		departure time.Time) (scoring.JourneyAnalysis, error)
	RankScores(scores []scoring.PathScore) []scoring.PathScore
	GetCacheStatistics() scoring.CacheStatistics
	ClearCaches()
}

type SpatialIndex interface {
	Nearest(qLat, qLon, radius float64) (spatialindex.NodeEntry, float64, bool)
}
