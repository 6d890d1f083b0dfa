package scoring

import (
	"context"
	"math"
	"sort"
	"time"

	da "github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"go.uber.org/zap"
)

type JourneyAnalysis struct {
	StartNode           string      `json:"start_node"`
	EndNode             string      `json:"end_node"`
	DepartureTime       time.Time   `json:"departure_time"`
	PathScores          []PathScore `json:"path_scores"` // input order
	TotalPathsAnalyzed  int         `json:"total_paths_analyzed"`
	BestPathProbability float64     `json:"best_path_probability"`
	NetworkProbability  float64     `json:"network_probability"` // at least one route passable
}

// AnalyzeJourney scores the candidate routes of one trip and combines them with a noisy-OR.
func (s *PathScoringService) AnalyzeJourney(ctx context.Context, paths []da.RoutePath, startNode, endNode string,
	departure time.Time) (JourneyAnalysis, error) {
	scores, err := s.ScorePaths(ctx, paths, departure)
	if err != nil {
		return JourneyAnalysis{}, err
	}

	best, network := combine(scores)
	s.log.Debug("journey analyzed",
		zap.String("start", startNode), zap.String("end", endNode),
		zap.Int("paths", len(scores)),
		zap.Float64("best", best), zap.Float64("network", network))

	return JourneyAnalysis{
		StartNode:           startNode,
		EndNode:             endNode,
		DepartureTime:       departure,
		PathScores:          scores,
		TotalPathsAnalyzed:  len(scores),
		BestPathProbability: best,
		NetworkProbability:  network,
	}, nil
}

// combine returns the best route probability and 1 - Π(1 - p_i). the product is taken as a sum of log1p terms
// so p_i close to 0 keep their precision. the result is kept within [best, 1].
func combine(scores []PathScore) (best, network float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	logNone := 0.0
	for _, sc := range scores {
		p := sc.LinearProbability
		best = max(best, p)
		logNone += math.Log1p(-p)
	}
	network = -math.Expm1(logNone)
	return best, util.Clamp(network, best, 1)
}

/*
RankScores orders scores by a composite of passability and speed, best first:

	composite = BridgeWeight x p + TimeWeight x fastest / travelTime

fastest is the smallest travel time among the scores. ties keep the input order. scores is not modified.
*/
func (s *PathScoringService) RankScores(scores []PathScore) []PathScore {
	ranked := make([]PathScore, len(scores))
	copy(ranked, scores)
	if len(ranked) == 0 {
		return ranked
	}

	fastest := math.MaxInt
	for _, sc := range ranked {
		fastest = min(fastest, sc.Path.TotalTravelTime())
	}

	for i := range ranked {
		speed := 1.0
		if tt := ranked[i].Path.TotalTravelTime(); tt > 0 {
			speed = float64(fastest) / float64(tt)
		}
		ranked[i].CompositeScore = s.cfg.Scoring.BridgeWeight*ranked[i].LinearProbability + s.cfg.Scoring.TimeWeight*speed
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})
	return ranked
}
