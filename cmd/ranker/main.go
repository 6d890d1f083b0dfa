package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lintang-b-s/bridgeroute/pkg/config"
	"github.com/lintang-b-s/bridgeroute/pkg/engine"
	"github.com/lintang-b-s/bridgeroute/pkg/logger"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	graphFile     = flag.String("graph", "./data/seattle.osm.pbf", "openstreetmap extract or graph snapshot")
	from          = flag.String("from", "", "origin node id")
	to            = flag.String("to", "", "destination node id")
	departureTime = flag.String("departure_time", "", "RFC3339 departure time, default now")
	preset        = flag.String("preset", "", "configuration preset: development, production or testing")
	predictorURL  = flag.String("predictor_url", "", "bridge opening prediction service, empty uses the mock predictor")
	useMaxSpeed   = flag.Bool("use_max_speed", true, "use the maxspeed tag of osm ways")
)

type rankedRoute struct {
	Rank           int                `json:"rank"`
	Nodes          []string           `json:"nodes"`
	TravelTime     int                `json:"travel_time"`
	Probability    float64            `json:"probability"`
	LogProbability float64            `json:"log_probability"`
	CompositeScore float64            `json:"composite_score"`
	Bridges        map[string]float64 `json:"bridges"`
}

type output struct {
	From                string        `json:"from"`
	To                  string        `json:"to"`
	DepartureTime       time.Time     `json:"departure_time"`
	BestPathProbability float64       `json:"best_path_probability"`
	NetworkProbability  float64       `json:"network_probability"`
	Routes              []rankedRoute `json:"routes"`
}

// ranks the routes between two node ids offline and prints them as json.
func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	_ = godotenv.Load()
	if err := util.ReadConfig(); err != nil {
		panic(err)
	}
	if *preset != "" {
		viper.Set("preset", *preset)
	}
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		panic(err)
	}

	departure := time.Now()
	if *departureTime != "" {
		departure, err = time.Parse(time.RFC3339, *departureTime)
		if err != nil {
			logger.Fatal("invalid departure_time", zap.Error(err))
		}
	}

	ctx := context.Background()
	graph, err := engine.LoadGraph(ctx, *graphFile, *useMaxSpeed, logger)
	if err != nil {
		logger.Fatal("load graph", zap.Error(err))
	}

	p := engine.NewPredictor(cfg, *predictorURL, 5*time.Second, logger)
	e := engine.NewEngine(graph, cfg, p, nil, 0.05, logger)

	paths, err := e.GetPathEnumerationService().EnumeratePaths(*from, *to, graph)
	if err != nil {
		logger.Fatal("enumerate paths", zap.Error(err))
	}

	scorer := e.GetPathScoringService()
	journey, err := scorer.AnalyzeJourney(ctx, paths, *from, *to, departure)
	if err != nil {
		logger.Fatal("analyze journey", zap.Error(err))
	}

	out := output{
		From:                *from,
		To:                  *to,
		DepartureTime:       departure,
		BestPathProbability: journey.BestPathProbability,
		NetworkProbability:  journey.NetworkProbability,
		Routes:              make([]rankedRoute, 0, len(journey.PathScores)),
	}
	for i, sc := range scorer.RankScores(journey.PathScores) {
		out.Routes = append(out.Routes, rankedRoute{
			Rank:           i + 1,
			Nodes:          sc.Path.GetNodes(),
			TravelTime:     sc.Path.TotalTravelTime(),
			Probability:    sc.LinearProbability,
			LogProbability: sc.LogProbability,
			CompositeScore: sc.CompositeScore,
			Bridges:        sc.BridgeProbabilities,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal("write output", zap.Error(err))
	}
}
