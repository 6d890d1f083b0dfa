package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/config"
	da "github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/predictor"
	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departure = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

// pathThrough builds A->B->... where edge i takes 60s and is a bridge when bridges[i] != "".
func pathThrough(bridges ...string) da.RoutePath {
	nodes := []string{"n0"}
	edges := make([]da.Edge, 0, len(bridges))
	for i, b := range bridges {
		from, to := fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1)
		nodes = append(nodes, to)
		if b == "" {
			edges = append(edges, da.NewEdge(from, to, 60, 500))
		} else {
			edges = append(edges, da.NewBridgeEdge(from, to, 60, 500, b))
		}
	}
	return da.NewRoutePath(nodes, edges)
}

func newTestService(p predictor.BridgeOpenPredictor, mutate ...func(*config.Config)) *PathScoringService {
	cfg := config.Testing()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewPathScoringService(p, cfg, nil, nil)
}

func TestScorePathNoBridges(t *testing.T) {
	svc := newTestService(predictor.NewMockPredictor(7))
	score, err := svc.ScorePath(context.Background(), pathThrough("", ""), departure)
	require.NoError(t, err)

	assert.Equal(t, 1.0, score.LinearProbability)
	assert.Equal(t, 0.0, score.LogProbability)
	assert.Empty(t, score.BridgeProbabilities)
	assert.Equal(t, CacheStatistics{}, svc.GetCacheStatistics())
}

func TestScorePathOneBridge(t *testing.T) {
	svc := newTestService(predictor.NewMockPredictor(7))
	score, err := svc.ScorePath(context.Background(), pathThrough("", "fremont"), departure)
	require.NoError(t, err)

	assert.Less(t, score.LogProbability, 0.0)
	assert.Greater(t, score.LinearProbability, 0.0)
	assert.LessOrEqual(t, score.LinearProbability, 1.0)
	assert.InDelta(t, math.Log(score.LinearProbability), score.LogProbability, 1e-12)
	require.Contains(t, score.BridgeProbabilities, "fremont")
	require.Len(t, score.BridgeETAs, 1)
	assert.Equal(t, departure.Add(2*time.Minute), score.BridgeETAs[0].ArrivalTime)
}

func TestScorePathProductOfBridges(t *testing.T) {
	p := predictor.NewMockPredictor(7,
		predictor.WithBridgeProbability("fremont", 0.3),
		predictor.WithBridgeProbability("ballard", 0.6),
	)

	for _, logDomain := range []bool{true, false} {
		svc := newTestService(p, func(c *config.Config) { c.Scoring.UseLogDomain = logDomain })
		score, err := svc.ScorePath(context.Background(), pathThrough("fremont", "", "ballard"), departure)
		require.NoError(t, err)

		assert.InDelta(t, 0.3*0.6, score.LinearProbability, 1e-10)
		assert.InDelta(t, math.Log(0.18), score.LogProbability, 1e-10)
		assert.Equal(t, map[string]float64{"fremont": 0.3, "ballard": 0.6}, score.BridgeProbabilities)
	}
}

func TestScorePathSmallProbabilities(t *testing.T) {
	svc := newTestService(predictor.NewMockPredictor(7, predictor.WithConstantProbability(0.01)))
	score, err := svc.ScorePath(context.Background(), pathThrough("fremont", "ballard"), departure)
	require.NoError(t, err)

	assert.Less(t, score.LinearProbability, 0.01)
	assert.Less(t, score.LogProbability, -4.0)
	assert.InDelta(t, 1e-4, score.LinearProbability, 1e-12)
}

func TestScorePathManyBridgesNoUnderflow(t *testing.T) {
	bridges := make([]string, 200)
	for i := range bridges {
		bridges[i] = fmt.Sprintf("b%d", i)
	}
	svc := newTestService(predictor.NewMockPredictor(7, predictor.WithConstantProbability(0.01)))
	score, err := svc.ScorePath(context.Background(), pathThrough(bridges...), departure)
	require.NoError(t, err)

	// 0.01^200 underflows float64, its log does not
	assert.Equal(t, 0.0, score.LinearProbability)
	assert.InDelta(t, 200*math.Log(0.01), score.LogProbability, 1e-9)
	assert.False(t, math.IsInf(score.LogProbability, 0))
}

func TestScorePathClamps(t *testing.T) {
	p := predictor.NewMockPredictor(7,
		predictor.WithBridgeProbability("closed", 0),
		predictor.WithBridgeProbability("open", 1),
	)
	svc := newTestService(p)
	score, err := svc.ScorePath(context.Background(), pathThrough("closed", "open"), departure)
	require.NoError(t, err)

	cfg := config.Testing().Scoring
	assert.Equal(t, cfg.MinProbability, score.BridgeProbabilities["closed"])
	assert.Equal(t, cfg.MaxProbability, score.BridgeProbabilities["open"])
	assert.Greater(t, score.LinearProbability, 0.0)
	assert.False(t, math.IsInf(score.LogProbability, 0))
}

func TestScorePathInvalidPath(t *testing.T) {
	p := predictor.NewMockPredictor(7)
	svc := newTestService(p)

	broken := da.NewRoutePath([]string{"A", "B", "C"}, []da.Edge{
		da.NewBridgeEdge("A", "B", 10, 100, "fremont"),
		da.NewBridgeEdge("X", "C", 10, 100, "ballard"),
	})
	for _, path := range []da.RoutePath{broken, da.NewRoutePath([]string{"A"}, nil), da.NewRoutePath(nil, nil)} {
		score, err := svc.ScorePath(context.Background(), path, departure)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPathScoring)
		assert.ErrorIs(t, err, da.ErrInvalidPath)
		var pse *PathScoringError
		assert.True(t, errors.As(err, &pse))
		assert.Zero(t, score.LinearProbability)
	}

	assert.Equal(t, CacheStatistics{}, svc.GetCacheStatistics())
	assert.Zero(t, p.PredictCalls())
}

func TestScorePathCacheHitsAndClear(t *testing.T) {
	p := predictor.NewMockPredictor(7)
	svc := newTestService(p)
	ctx := context.Background()
	path := pathThrough("fremont", "", "ballard")

	first, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	stats := svc.GetCacheStatistics()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)

	second, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	stats = svc.GetCacheStatistics()
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
	assert.Equal(t, int64(2), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-12)
	assert.InDelta(t, first.LinearProbability, second.LinearProbability, 1e-10)
	assert.Equal(t, int64(2), p.PredictCalls())

	svc.ClearCaches()
	assert.Equal(t, CacheStatistics{}, svc.GetCacheStatistics())

	third, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	stats = svc.GetCacheStatistics()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, first.LinearProbability, third.LinearProbability)
}

func TestScorePathTimeBuckets(t *testing.T) {
	svc := newTestService(predictor.NewMockPredictor(7))
	ctx := context.Background()
	path := pathThrough("fremont") // eta = departure + 60s

	_, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	require.Equal(t, int64(1), svc.GetCacheStatistics().Misses)

	// 08:01:00 and 08:01:30 share the 08:00 bucket
	_, err = svc.ScorePath(ctx, path, departure.Add(30*time.Second))
	require.NoError(t, err)
	stats := svc.GetCacheStatistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	// 08:11:00 is in the 08:10 bucket
	_, err = svc.ScorePath(ctx, path, departure.Add(10*time.Minute))
	require.NoError(t, err)
	stats = svc.GetCacheStatistics()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)

	// bucket boundary: 08:04:59 hits the 08:00 bucket, 08:05:00 starts a new one
	_, err = svc.ScorePath(ctx, path, departure.Add(3*time.Minute+59*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), svc.GetCacheStatistics().Hits)
	_, err = svc.ScorePath(ctx, path, departure.Add(4*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), svc.GetCacheStatistics().Misses)
}

func TestScorePathBucketWidthConfigurable(t *testing.T) {
	svc := newTestService(predictor.NewMockPredictor(7), func(c *config.Config) {
		c.Prediction.TimeBucketWidth = time.Minute
	})
	ctx := context.Background()
	path := pathThrough("fremont")

	_, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	_, err = svc.ScorePath(ctx, path, departure.Add(90*time.Second))
	require.NoError(t, err)
	stats := svc.GetCacheStatistics()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestScorePathCachingDisabled(t *testing.T) {
	p := predictor.NewMockPredictor(7)
	svc := newTestService(p, func(c *config.Config) { c.Prediction.EnablePredictionCache = false })
	ctx := context.Background()
	path := pathThrough("fremont")

	a, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	b, err := svc.ScorePath(ctx, path, departure)
	require.NoError(t, err)

	assert.Equal(t, a.LinearProbability, b.LinearProbability)
	stats := svc.GetCacheStatistics()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(2), p.PredictCalls())
}

func TestScorePathDeterministicAcrossInstances(t *testing.T) {
	path := pathThrough("fremont", "ballard", "", "university", "montlake")
	ctx := context.Background()

	a := newTestService(predictor.NewMockPredictor(7))
	b := newTestService(predictor.NewMockPredictor(7))
	c := newTestService(predictor.NewMockPredictor(7), func(c *config.Config) {
		c.Prediction.UseBatchPrediction = true
	})

	sa, err := a.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	sb, err := b.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	sc, err := c.ScorePath(ctx, path, departure)
	require.NoError(t, err)
	again, err := a.ScorePath(ctx, path, departure)
	require.NoError(t, err)

	assert.Equal(t, sa.LinearProbability, sb.LinearProbability)
	assert.Equal(t, sa.LogProbability, sb.LogProbability)
	assert.Equal(t, sa.LinearProbability, sc.LinearProbability)
	assert.Equal(t, sa.LinearProbability, again.LinearProbability)
	assert.Equal(t, sa.BridgeProbabilities, sb.BridgeProbabilities)
}

func TestScorePathBatchChunks(t *testing.T) {
	p := predictor.NewMockPredictor(7, predictor.WithMaxBatchSize(3))
	svc := newTestService(p, func(c *config.Config) {
		c.Prediction.UseBatchPrediction = true
		c.Prediction.BatchSize = 2
	})

	_, err := svc.ScorePath(context.Background(), pathThrough("a", "b", "c", "d", "e"), departure)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.BatchCalls())
	assert.Equal(t, int64(0), p.PredictCalls())
	assert.Equal(t, int64(5), p.PredictedInputs())
}

func TestScorePathRepeatedBridge(t *testing.T) {
	p := predictor.NewMockPredictor(7, predictor.WithBridgeProbability("fremont", 0.5))
	svc := newTestService(p)

	// both crossings land in the 08:00 bucket
	path := da.NewRoutePath([]string{"A", "B", "A"}, []da.Edge{
		da.NewBridgeEdge("A", "B", 30, 100, "fremont"),
		da.NewBridgeEdge("B", "A", 30, 100, "fremont"),
	})
	score, err := svc.ScorePath(context.Background(), path, departure)
	require.NoError(t, err)

	assert.InDelta(t, 0.25, score.LinearProbability, 1e-10)
	assert.Equal(t, int64(1), p.PredictCalls())
	assert.Equal(t, int64(2), svc.GetCacheStatistics().Misses)
}

func TestScorePathPredictorErrors(t *testing.T) {
	p := predictor.NewMockPredictor(7, predictor.WithSupportedBridges("fremont"))
	svc := newTestService(p)
	ctx := context.Background()

	_, err := svc.ScorePath(ctx, pathThrough("fremont", "ballard"), departure)
	require.Error(t, err)
	var ube *predictor.UnsupportedBridgeError
	require.True(t, errors.As(err, &ube))
	assert.Equal(t, "ballard", ube.BridgeID)

	// fremont was resolved before the failure and stays cached
	assert.Equal(t, 1, svc.GetCacheStatistics().Entries)
	_, err = svc.ScorePath(ctx, pathThrough("fremont"), departure)
	require.NoError(t, err)
	assert.Equal(t, int64(1), svc.GetCacheStatistics().Hits)

	batch := newTestService(predictor.NewMockPredictor(7, predictor.WithMaxBatchSize(1)), func(c *config.Config) {
		c.Prediction.UseBatchPrediction = true
	})
	// chunks are capped by the predictor's max batch size
	_, err = batch.ScorePath(ctx, pathThrough("a", "b"), departure)
	require.NoError(t, err)
}

type blockingPredictor struct {
	*predictor.MockPredictor
}

func (b blockingPredictor) Predict(ctx context.Context, bridgeID string, eta time.Time,
	features []float64) (predictor.Prediction, error) {
	<-ctx.Done()
	return predictor.Prediction{}, ctx.Err()
}

func TestScorePathDeadline(t *testing.T) {
	svc := newTestService(blockingPredictor{predictor.NewMockPredictor(7)}, func(c *config.Config) {
		c.Performance.MaxScoringTime = 20 * time.Millisecond
	})
	_, err := svc.ScorePath(context.Background(), pathThrough("fremont"), departure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, svc.GetCacheStatistics().Entries)
}

func TestScorePathsKeepsOrder(t *testing.T) {
	p := predictor.NewMockPredictor(7)
	svc := newTestService(p)
	ctx := context.Background()

	paths := []da.RoutePath{
		pathThrough("a", "b", "c"),
		pathThrough(""),
		pathThrough("d"),
		pathThrough("a", "", "d"),
		pathThrough("e", "f"),
	}
	scores, err := svc.ScorePaths(ctx, paths, departure)
	require.NoError(t, err)
	require.Len(t, scores, len(paths))

	ref := newTestService(predictor.NewMockPredictor(7))
	for i, path := range paths {
		assert.True(t, scores[i].Path.Equal(path))
		want, err := ref.ScorePath(ctx, path, departure)
		require.NoError(t, err)
		assert.Equal(t, want.LinearProbability, scores[i].LinearProbability)
	}

	invalid := append([]da.RoutePath{}, paths...)
	invalid[3] = da.NewRoutePath([]string{"x"}, nil)
	_, err = svc.ScorePaths(ctx, invalid, departure)
	assert.ErrorIs(t, err, ErrPathScoring)

	empty, err := svc.ScorePaths(ctx, nil, departure)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestScorePathConcurrent(t *testing.T) {
	svc := newTestService(predictor.NewMockPredictor(7))
	path := pathThrough("fremont", "ballard")
	want, err := newTestService(predictor.NewMockPredictor(7)).ScorePath(context.Background(), path, departure)
	require.NoError(t, err)

	const callers = 50
	var wg sync.WaitGroup
	got := make([]PathScore, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			score, err := svc.ScorePath(context.Background(), path, departure)
			assert.NoError(t, err)
			got[i] = score
		}(i)
	}
	wg.Wait()

	for _, s := range got {
		assert.Equal(t, want.LinearProbability, s.LinearProbability)
	}
	stats := svc.GetCacheStatistics()
	assert.Equal(t, int64(callers*2), stats.Hits+stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}

type slowPredictor struct {
	*predictor.MockPredictor
	delay time.Duration
}

func (p slowPredictor) Predict(ctx context.Context, bridgeID string, eta time.Time,
	features []float64) (predictor.Prediction, error) {
	select {
	case <-time.After(p.delay):
		return p.MockPredictor.Predict(ctx, bridgeID, eta, features)
	case <-ctx.Done():
		return predictor.Prediction{}, ctx.Err()
	}
}

func TestScorePathSharedPredictionKeepsCallerDeadlines(t *testing.T) {
	mock := predictor.NewMockPredictor(7, predictor.WithBridgeProbability("fremont", 0.4))
	svc := newTestService(slowPredictor{MockPredictor: mock, delay: 100 * time.Millisecond})
	path := pathThrough("fremont")

	var wg sync.WaitGroup
	var errA, errB error
	var scoreB PathScore

	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, errA = svc.ScorePath(ctx, path, departure)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		scoreB, errB = svc.ScorePath(context.Background(), path, departure)
	}()
	wg.Wait()

	assert.ErrorIs(t, errA, context.DeadlineExceeded)
	require.NoError(t, errB)
	assert.InDelta(t, 0.4, scoreB.LinearProbability, 1e-10)
	assert.Equal(t, int64(1), mock.PredictCalls())
	assert.Equal(t, 1, svc.GetCacheStatistics().Entries)
}

type recordingPredictor struct {
	*predictor.MockPredictor
	mu       sync.Mutex
	features [][]float64
}

func (p *recordingPredictor) Predict(ctx context.Context, bridgeID string, eta time.Time,
	features []float64) (predictor.Prediction, error) {
	p.mu.Lock()
	p.features = append(p.features, append([]float64(nil), features...))
	p.mu.Unlock()
	return p.MockPredictor.Predict(ctx, bridgeID, eta, features)
}

func TestScorePathSignalSource(t *testing.T) {
	p := &recordingPredictor{MockPredictor: predictor.NewMockPredictor(7)}
	svc := newTestService(p)

	var asked []string
	svc.SetSignalSource(func(bridgeID string, at time.Time) predictor.LiveSignals {
		asked = append(asked, fmt.Sprintf("%s@%s", bridgeID, at.Format("15:04")))
		return predictor.LiveSignals{
			RecentOpen5m:      1,
			RecentOpen30m:     0.5,
			CrossingsOK:       3,
			CrossingsObserved: 4,
			GateAnomaly:       4,
		}
	})
	// nil keeps the current source
	svc.SetSignalSource(nil)

	_, err := svc.ScorePath(context.Background(), pathThrough("", "fremont"), departure)
	require.NoError(t, err)

	assert.Equal(t, []string{"fremont@08:00"}, asked)
	require.Len(t, p.features, 1)
	f := p.features[0]
	assert.Equal(t, 1.0, f[predictor.FeatureRecentOpen5m])
	assert.Equal(t, 0.5, f[predictor.FeatureRecentOpen30m])
	assert.Equal(t, 0.75, f[predictor.FeatureCrossingRate])
	assert.Equal(t, 0.0, f[predictor.FeatureViaRoutable])
	assert.Equal(t, 0.5, f[predictor.FeatureGateAnomaly])
}

func TestScorePathDefaultSignals(t *testing.T) {
	p := &recordingPredictor{MockPredictor: predictor.NewMockPredictor(7)}
	_, err := newTestService(p).ScorePath(context.Background(), pathThrough("fremont"), departure)
	require.NoError(t, err)

	require.Len(t, p.features, 1)
	assert.Equal(t, predictor.BuildFeatures("fremont", departure, departure, predictor.DefaultLiveSignals()),
		p.features[0])
}

func TestScorePathCachedAnswerSharedAcrossDepartures(t *testing.T) {
	p := &recordingPredictor{MockPredictor: predictor.NewMockPredictor(7)}
	svc := newTestService(p)
	ctx := context.Background()

	// both routes reach fremont at 08:03, inside the 08:00 bucket
	early, err := svc.ScorePath(ctx, pathThrough("", "", "fremont"), departure)
	require.NoError(t, err)
	late, err := svc.ScorePath(ctx, pathThrough("fremont"), departure.Add(2*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, early.LinearProbability, late.LinearProbability)
	assert.Equal(t, int64(1), svc.GetCacheStatistics().Hits)
	// the cached answer was predicted with the horizon of the first departure
	require.Len(t, p.features, 1)
	assert.Equal(t, 0.0, p.features[0][predictor.FeatureHorizonMinutes])
}

type shortBatchPredictor struct {
	*predictor.MockPredictor
}

func (p shortBatchPredictor) PredictBatch(ctx context.Context, inputs []predictor.Input) (predictor.BatchResult, error) {
	res, err := p.MockPredictor.PredictBatch(ctx, inputs)
	if err != nil {
		return res, err
	}
	res.Predictions = res.Predictions[:len(res.Predictions)-1]
	return res, nil
}

func TestScorePathShortBatchAnswer(t *testing.T) {
	svc := newTestService(shortBatchPredictor{predictor.NewMockPredictor(7)}, func(c *config.Config) {
		c.Prediction.UseBatchPrediction = true
	})
	_, err := svc.ScorePath(context.Background(), pathThrough("fremont", "ballard"), departure)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortBatch)
	assert.Equal(t, util.ErrInternalServerError, util.ErrorCode(err))
	assert.Equal(t, 0, svc.GetCacheStatistics().Entries)
}
