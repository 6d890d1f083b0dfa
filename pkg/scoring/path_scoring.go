package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/concurrent"
	"github.com/lintang-b-s/bridgeroute/pkg/config"
	da "github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/engine/eta"
	"github.com/lintang-b-s/bridgeroute/pkg/metrics"
	"github.com/lintang-b-s/bridgeroute/pkg/predictor"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const maxBatchFanOut = 4

// PathScore is the passability estimate of one route.
type PathScore struct {
	Path                da.RoutePath       `json:"-"`
	LinearProbability   float64            `json:"linear_probability"`
	LogProbability      float64            `json:"log_probability"`
	BridgeProbabilities map[string]float64 `json:"bridge_probabilities"` // clamped, by bridge id
	BridgeETAs          []eta.ETA          `json:"-"`
	CompositeScore      float64            `json:"composite_score"` // set by RankScores
}

// SignalFunc supplies the live signals used to build predictor features for a bridge.
type SignalFunc func(bridgeID string, at time.Time) predictor.LiveSignals

// PathScoringService scores routes by the probability that every bridge on them is passable at the
// estimated crossing time. safe for concurrent use.
type PathScoringService struct {
	predictor predictor.BridgeOpenPredictor
	cfg       config.Config
	estimator *eta.Estimator
	cache     *predictionCache
	flight    singleflight.Group
	signals   SignalFunc
	sink      metrics.Sink
	log       *zap.Logger
}

func NewPathScoringService(p predictor.BridgeOpenPredictor, cfg config.Config, sink metrics.Sink,
	log *zap.Logger) *PathScoringService {
	if log == nil {
		log = zap.NewNop()
	}
	sink = metrics.OrNoop(sink)
	return &PathScoringService{
		predictor: p,
		cfg:       cfg,
		estimator: eta.NewEstimator(),
		cache: newPredictionCache(cfg.PredictionCacheEnabled(), cfg.Prediction.CacheSize, cfg.PredictionCacheTTL(),
			cfg.Prediction.TimeBucketWidth, sink),
		signals: func(string, time.Time) predictor.LiveSignals {
			return predictor.DefaultLiveSignals()
		},
		sink: sink,
		log:  log,
	}
}

// SetSignalSource replaces the default live signals. call it before scoring starts.
func (s *PathScoringService) SetSignalSource(fn SignalFunc) {
	if fn != nil {
		s.signals = fn
	}
}

func (s *PathScoringService) GetConfig() config.Config {
	return s.cfg
}

/*
ScorePath. per bridge on path: estimate the crossing time, take the cached or predicted probability that the
bridge is passable, clamp it to [MinProbability, MaxProbability]. the route probability is the product of the
clamped values, accumulated as a sum of logs when UseLogDomain is set. a route without bridges has probability 1.
*/
func (s *PathScoringService) ScorePath(ctx context.Context, path da.RoutePath, departure time.Time) (PathScore, error) {
	if err := path.Validate(); err != nil {
		return PathScore{}, util.WrapErrorf(&PathScoringError{Path: path.String(), Err: err}, util.ErrBadParamInput,
			"score route %s", path)
	}

	ctx, cancel := s.withScoringDeadline(ctx)
	defer cancel()
	return s.scorePath(ctx, path, departure)
}

func (s *PathScoringService) withScoringDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Performance.MaxScoringTime > 0 {
		return context.WithTimeout(ctx, s.cfg.Performance.MaxScoringTime)
	}
	return context.WithCancel(ctx)
}

func (s *PathScoringService) scorePath(ctx context.Context, path da.RoutePath, departure time.Time) (PathScore, error) {
	etas, err := s.estimator.EstimateBridgeETAs(path, departure)
	if err != nil {
		return PathScore{}, err
	}

	score := PathScore{
		Path:                path,
		LinearProbability:   1.0,
		LogProbability:      0.0,
		BridgeProbabilities: make(map[string]float64, len(etas)),
		BridgeETAs:          etas,
	}
	if len(etas) == 0 {
		return score, nil
	}

	raw, err := s.resolveProbabilities(ctx, departure, etas)
	if err != nil {
		return PathScore{}, err
	}

	clamped := make([]float64, len(raw))
	for i, p := range raw {
		clamped[i] = util.Clamp(p, s.cfg.Scoring.MinProbability, s.cfg.Scoring.MaxProbability)
		score.BridgeProbabilities[etas[i].BridgeID] = clamped[i]
	}
	score.LinearProbability, score.LogProbability = aggregate(clamped, s.cfg.Scoring.UseLogDomain)
	return score, nil
}

// aggregate multiplies probabilities, summing logs in the log domain so many small factors do not underflow.
func aggregate(probs []float64, useLogDomain bool) (linear, logProbability float64) {
	if useLogDomain {
		sum := 0.0
		for _, p := range probs {
			sum += math.Log(p)
		}
		return math.Exp(sum), sum
	}

	prod := 1.0
	for _, p := range probs {
		prod *= p
	}
	return prod, math.Log(prod)
}

type pendingPrediction struct {
	key     cacheKey
	input   predictor.Input
	indices []int // positions in the eta list sharing this key
}

// resolveProbabilities answers every eta from the cache or the predictor, in eta order. successful predictions
// are cached even when another bridge of the same route fails.
func (s *PathScoringService) resolveProbabilities(ctx context.Context, departure time.Time,
	etas []eta.ETA) ([]float64, error) {
	probs := make([]float64, len(etas))

	pending := make([]*pendingPrediction, 0)
	byKey := make(map[cacheKey]*pendingPrediction)
	for i, e := range etas {
		k := s.cache.key(e.BridgeID, e.ArrivalTime)
		if p, ok := s.cache.lookup(k); ok {
			probs[i] = p
			continue
		}
		if pp, ok := byKey[k]; ok {
			pp.indices = append(pp.indices, i)
			continue
		}

		// predict at the bucket start. the answer is cached for the bucket, later departures reuse it with the
		// horizon of the first one
		at := s.cache.bucketStart(e.ArrivalTime)
		pp := &pendingPrediction{
			key: k,
			input: predictor.Input{
				BridgeID: e.BridgeID,
				ETA:      at,
				Features: predictor.BuildFeatures(e.BridgeID, departure, at, s.signals(e.BridgeID, at)),
			},
			indices: []int{i},
		}
		byKey[k] = pp
		pending = append(pending, pp)
	}
	if len(pending) == 0 {
		return probs, nil
	}

	var answers []float64
	var err error
	if s.cfg.Prediction.UseBatchPrediction && len(pending) > 1 {
		answers, err = s.predictBatched(ctx, pending)
	} else {
		answers, err = s.predictSingly(ctx, pending)
	}
	if err != nil {
		return nil, err
	}

	for j, pp := range pending {
		for _, i := range pp.indices {
			probs[i] = answers[j]
		}
	}
	return probs, nil
}

func (s *PathScoringService) predictSingly(ctx context.Context, pending []*pendingPrediction) ([]float64, error) {
	answers := make([]float64, len(pending))
	for j, pp := range pending {
		p, err := s.predictShared(ctx, pp)
		if err != nil {
			s.predictorFailed(err, pp.input.BridgeID)
			return nil, err
		}
		answers[j] = p
	}
	return answers, nil
}

// predictShared joins concurrent callers predicting the same bridge bucket into one predictor call. the call
// runs on a context detached from any single caller. every caller waits on its own ctx.
func (s *PathScoringService) predictShared(ctx context.Context, pp *pendingPrediction) (float64, error) {
	flightKey := fmt.Sprintf("%s@%d", pp.key.bridgeID, pp.key.bucket)
	for attempt := 0; ; attempt++ {
		ch := s.flight.DoChan(flightKey, func() (interface{}, error) {
			fctx, cancel := s.flightContext(ctx)
			defer cancel()

			start := time.Now()
			pred, err := s.predictor.Predict(fctx, pp.input.BridgeID, pp.input.ETA, pp.input.Features)
			s.sink.ObservePredictorLatency("single", time.Since(start))
			if err != nil {
				return nil, err
			}
			s.cache.store(pp.key, pred.OpenProbability)
			return pred.OpenProbability, nil
		})

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(float64), nil
			}
			// a joined flight can end on the scoring budget of the caller that started it
			if res.Shared && isContextError(res.Err) && ctx.Err() == nil && attempt == 0 {
				continue
			}
			return 0, res.Err
		}
	}
}

func (s *PathScoringService) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return s.withScoringDeadline(context.WithoutCancel(ctx))
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// predictBatched splits pending into chunks of min(BatchSize, MaxBatchSize) and predicts them concurrently.
func (s *PathScoringService) predictBatched(ctx context.Context, pending []*pendingPrediction) ([]float64, error) {
	chunkSize := max(min(s.cfg.Prediction.BatchSize, s.predictor.MaxBatchSize()), 1)
	answers := make([]float64, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchFanOut)
	for lo := 0; lo < len(pending); lo += chunkSize {
		chunk := pending[lo:min(lo+chunkSize, len(pending))]
		offset := lo
		g.Go(func() error {
			inputs := make([]predictor.Input, len(chunk))
			for i, pp := range chunk {
				inputs[i] = pp.input
			}

			start := time.Now()
			res, err := s.predictor.PredictBatch(gctx, inputs)
			s.sink.ObservePredictorLatency("batch", time.Since(start))
			if err != nil {
				s.predictorFailed(err, inputs[0].BridgeID)
				return err
			}
			if len(res.Predictions) != len(chunk) {
				return util.WrapErrorf(ErrShortBatch, util.ErrInternalServerError,
					"predictor answered %d of %d batch inputs", len(res.Predictions), len(chunk))
			}

			for i, pred := range res.Predictions {
				s.cache.store(chunk[i].key, pred.OpenProbability)
				answers[offset+i] = pred.OpenProbability
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *PathScoringService) predictorFailed(err error, bridgeID string) {
	kind := predictor.ErrorKind(err)
	s.sink.PredictorError(kind)
	s.log.Error("bridge open predictor failed",
		zap.String("bridgeID", bridgeID), zap.String("kind", kind), zap.Error(err))
}

// ScorePaths scores every path concurrently. scores follow the input order; the first error by input order
// is returned.
func (s *PathScoringService) ScorePaths(ctx context.Context, paths []da.RoutePath, departure time.Time) ([]PathScore, error) {
	type result struct {
		score PathScore
		err   error
	}

	results := concurrent.OrderedMap(runtime.GOMAXPROCS(0), paths, func(path da.RoutePath) result {
		score, err := s.ScorePath(ctx, path, departure)
		return result{score: score, err: err}
	})

	scores := make([]PathScore, len(results))
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		scores[i] = r.score
	}
	return scores, nil
}

func (s *PathScoringService) GetCacheStatistics() CacheStatistics {
	return s.cache.statistics()
}

// ClearCaches evicts every cached prediction and zeroes the hit and miss counters.
func (s *PathScoringService) ClearCaches() {
	s.cache.clear()
	s.log.Info("prediction cache cleared")
}
