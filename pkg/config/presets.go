package config

import (
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/util"
)

const (
	PresetDevelopment = "development"
	PresetProduction  = "production"
	PresetTesting     = "testing"
)

// Preset returns the named bundle of configuration values.
func Preset(name string) (Config, error) {
	switch name {
	case PresetDevelopment:
		return Development(), nil
	case PresetProduction:
		return Production(), nil
	case PresetTesting:
		return Testing(), nil
	default:
		return Config{}, util.WrapErrorf(ErrInvalidConfig, util.ErrBadParamInput, "unknown configuration preset %q", name)
	}
}

func Development() Config {
	return Config{
		PathEnum: PathEnumConfig{
			MaxPaths:            10,
			MaxDepth:            25,
			MaxTravelTime:       3600,
			AllowCycles:         false,
			MaxTimeOverShortest: 2.0,
		},
		Scoring: ScoringConfig{
			MinProbability: 1e-6,
			MaxProbability: 1 - 1e-6,
			UseLogDomain:   true,
			BridgeWeight:   0.7,
			TimeWeight:     0.3,
		},
		Performance: PerformanceConfig{
			MaxEnumerationTime:  5 * time.Second,
			MaxScoringTime:      10 * time.Second,
			EnableCaching:       true,
			CacheExpirationTime: 5 * time.Minute,
		},
		Prediction: PredictionConfig{
			DefaultBridgeProbability:  0.85,
			UseBatchPrediction:        true,
			BatchSize:                 16,
			EnablePredictionCache:     true,
			PredictionCacheExpiration: 5 * time.Minute,
			MockPredictorSeed:         42,
			TimeBucketWidth:           5 * time.Minute,
			CacheSize:                 4096,
		},
	}
}

func Production() Config {
	return Config{
		PathEnum: PathEnumConfig{
			MaxPaths:               20,
			MaxDepth:               60,
			MaxTravelTime:          7200,
			AllowCycles:            false,
			MaxTimeOverShortest:    1.5,
			UseBidirectionalSearch: true,
		},
		Scoring: ScoringConfig{
			MinProbability: 1e-6,
			MaxProbability: 1 - 1e-6,
			UseLogDomain:   true,
			BridgeWeight:   0.7,
			TimeWeight:     0.3,
		},
		Performance: PerformanceConfig{
			MaxEnumerationTime:  2 * time.Second,
			MaxScoringTime:      5 * time.Second,
			EnableCaching:       true,
			CacheExpirationTime: 10 * time.Minute,
		},
		Prediction: PredictionConfig{
			DefaultBridgeProbability:  0.85,
			UseBatchPrediction:        true,
			BatchSize:                 64,
			EnablePredictionCache:     true,
			PredictionCacheExpiration: 10 * time.Minute,
			TimeBucketWidth:           5 * time.Minute,
			CacheSize:                 1 << 16,
		},
	}
}

func Testing() Config {
	return Config{
		PathEnum: PathEnumConfig{
			MaxPaths:            5,
			MaxDepth:            10,
			MaxTravelTime:       3600,
			AllowCycles:         false,
			MaxTimeOverShortest: 3.0,
		},
		Scoring: ScoringConfig{
			MinProbability: 1e-6,
			MaxProbability: 1 - 1e-6,
			UseLogDomain:   true,
			BridgeWeight:   0.7,
			TimeWeight:     0.3,
		},
		Performance: PerformanceConfig{
			MaxEnumerationTime:  30 * time.Second,
			MaxScoringTime:      30 * time.Second,
			EnableCaching:       true,
			CacheExpirationTime: time.Hour,
		},
		Prediction: PredictionConfig{
			DefaultBridgeProbability:  0.85,
			UseBatchPrediction:        false,
			BatchSize:                 4,
			EnablePredictionCache:     true,
			PredictionCacheExpiration: time.Hour,
			MockPredictorSeed:         7,
			TimeBucketWidth:           5 * time.Minute,
			CacheSize:                 1024,
		},
	}
}
