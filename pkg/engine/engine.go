package engine

import (
	"context"
	"strings"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/config"
	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/engine/routing"
	"github.com/lintang-b-s/bridgeroute/pkg/metrics"
	"github.com/lintang-b-s/bridgeroute/pkg/osmparser"
	"github.com/lintang-b-s/bridgeroute/pkg/predictor"
	"github.com/lintang-b-s/bridgeroute/pkg/scoring"
	"github.com/lintang-b-s/bridgeroute/pkg/spatialindex"
	"go.uber.org/zap"
)

// Engine wires the graph, its spatial index and the enumeration & scoring services of one deployment.
type Engine struct {
	graph        *datastructure.Graph
	spatialIndex *spatialindex.Rtree
	enumerator   *routing.PathEnumerationService
	scorer       *scoring.PathScoringService
}

func (e *Engine) GetGraph() *datastructure.Graph {
	return e.graph
}

func (e *Engine) GetSpatialIndex() *spatialindex.Rtree {
	return e.spatialIndex
}

func (e *Engine) GetPathEnumerationService() *routing.PathEnumerationService {
	return e.enumerator
}

func (e *Engine) GetPathScoringService() *scoring.PathScoringService {
	return e.scorer
}

// NewEngine indexes graph with leaves of leafBoundingBoxRadius km and builds the services from cfg.
func NewEngine(graph *datastructure.Graph, cfg config.Config, p predictor.BridgeOpenPredictor, sink metrics.Sink,
	leafBoundingBoxRadius float64, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Starting bridge aware routing engine...",
		zap.Int("nodes", graph.NumberOfNodes()),
		zap.Int("edges", graph.NumberOfEdges()),
		zap.Strings("bridges", graph.BridgeIDs()))

	rtree := spatialindex.NewRtree()
	rtree.Build(graph, leafBoundingBoxRadius, logger)

	return &Engine{
		graph:        graph,
		spatialIndex: rtree,
		enumerator:   routing.NewPathEnumerationService(cfg.PathEnum, cfg.Performance, sink, logger),
		scorer:       scoring.NewPathScoringService(p, cfg, sink, logger),
	}
}

// LoadGraph reads an openstreetmap extract (.osm.pbf, .osm, .osm.bz2) or a graph snapshot written by
// Graph.WriteGraphFile.
func LoadGraph(ctx context.Context, graphFilePath string, useMaxSpeed bool, logger *zap.Logger) (*datastructure.Graph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := osmparser.FormatFromFilename(graphFilePath); err == nil {
		logger.Info("Parsing openstreetmap file", zap.String("osmFilePath", graphFilePath))
		return osmparser.NewOSMParser(useMaxSpeed, logger).ParseFile(ctx, graphFilePath)
	}
	logger.Info("Reading graph from ", zap.String("graphFilePath", graphFilePath))
	return datastructure.ReadGraphFile(graphFilePath)
}

// NewPredictor returns the remote predictor at predictorURL, or the seeded mock when predictorURL is empty.
func NewPredictor(cfg config.Config, predictorURL string, timeout time.Duration, logger *zap.Logger) predictor.BridgeOpenPredictor {
	if strings.TrimSpace(predictorURL) == "" {
		return predictor.NewMockPredictor(cfg.Prediction.MockPredictorSeed,
			predictor.WithDefaultProbability(cfg.Prediction.DefaultBridgeProbability))
	}
	return predictor.NewHTTPPredictor(predictor.HTTPPredictorConfig{
		BaseURL:            predictorURL,
		Timeout:            timeout,
		MaxBatchSize:       cfg.Prediction.BatchSize,
		DefaultProbability: cfg.Prediction.DefaultBridgeProbability,
	}, logger)
}
