package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/lintang-b-s/bridgeroute/pkg/config"
	"github.com/lintang-b-s/bridgeroute/pkg/engine"
	"github.com/lintang-b-s/bridgeroute/pkg/http"
	"github.com/lintang-b-s/bridgeroute/pkg/http/usecases"
	"github.com/lintang-b-s/bridgeroute/pkg/logger"
	"github.com/lintang-b-s/bridgeroute/pkg/metrics"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	graphFile             = flag.String("graph", "./data/seattle.osm.pbf", "openstreetmap extract (.osm.pbf, .osm, .osm.bz2) or graph snapshot")
	writeGraph            = flag.String("write_graph", "", "write the parsed graph snapshot to this path")
	preset                = flag.String("preset", "", "configuration preset: development, production or testing")
	predictorURL          = flag.String("predictor_url", "", "bridge opening prediction service, empty uses the mock predictor")
	predictorTimeout      = flag.Duration("predictor_timeout", 5*time.Second, "prediction service request timeout")
	useMaxSpeed           = flag.Bool("use_max_speed", true, "use the maxspeed tag of osm ways")
	largestSCC            = flag.Bool("largest_scc", true, "keep only the largest strongly connected component of the graph")
	useRateLimit          = flag.Bool("rate_limit", false, "rate limit incoming requests")
	snapRadius            = flag.Float64("snap_radius", 0.5, "max distance in km between a query coordinate and its graph node")
	leafBoundingBoxRadius = flag.Float64("leaf_bounding_box_radius", 0.05, "leaf node (r-tree) bounding box radius in km")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}
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

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	graph, err := engine.LoadGraph(ctx, *graphFile, *useMaxSpeed, logger)
	if err != nil {
		panic(err)
	}
	if *largestSCC {
		graph, err = graph.LargestStronglyConnectedComponent()
		if err != nil {
			panic(err)
		}
	}
	if *writeGraph != "" {
		if err := graph.WriteGraphFile(*writeGraph); err != nil {
			panic(err)
		}
		logger.Info("graph snapshot written", zap.String("path", *writeGraph))
	}

	sink := metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
	p := engine.NewPredictor(cfg, *predictorURL, *predictorTimeout, logger)
	routingEngine := engine.NewEngine(graph, cfg, p, sink, *leafBoundingBoxRadius, logger)

	routingService := usecases.NewRoutingService(logger, routingEngine.GetGraph(),
		routingEngine.GetPathEnumerationService(), routingEngine.GetPathScoringService(),
		routingEngine.GetSpatialIndex(), *snapRadius)

	api := http.NewServer(logger)
	api.Use(ctx, *useRateLimit, routingService)

	signal := http.GracefulShutdown()

	logger.Info("Bridgeroute Routing Engine Server Stopped", zap.String("signal", signal.String()))
	cleanup()
	if err := api.Wait(); err != nil && err != context.Canceled {
		logger.Error("server exited", zap.Error(err))
	}
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
