package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/util"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// PathEnumConfig bounds the candidate route search.
type PathEnumConfig struct {
	MaxPaths               int     `mapstructure:"max_paths"`       // 0 keeps every path
	MaxDepth               int     `mapstructure:"max_depth"`       // max edges per path, 0 disables the bound
	MaxTravelTime          int     `mapstructure:"max_travel_time"` // second, 0 disables the bound
	AllowCycles            bool    `mapstructure:"allow_cycles"`
	MaxTimeOverShortest    float64 `mapstructure:"max_time_over_shortest"` // <= 0 disables the relative bound
	RandomSeed             uint64  `mapstructure:"random_seed"`            // 0 keeps the graph's edge order
	UseBidirectionalSearch bool    `mapstructure:"use_bidirectional_search"`
}

type ScoringConfig struct {
	MinProbability float64 `mapstructure:"min_probability"`
	MaxProbability float64 `mapstructure:"max_probability"`
	UseLogDomain   bool    `mapstructure:"use_log_domain"`
	BridgeWeight   float64 `mapstructure:"bridge_weight"`
	TimeWeight     float64 `mapstructure:"time_weight"`
}

type PerformanceConfig struct {
	MaxEnumerationTime  time.Duration `mapstructure:"max_enumeration_time"` // 0 = unbounded
	MaxScoringTime      time.Duration `mapstructure:"max_scoring_time"`     // 0 = unbounded
	EnableCaching       bool          `mapstructure:"enable_caching"`
	CacheExpirationTime time.Duration `mapstructure:"cache_expiration_time"`
}

type PredictionConfig struct {
	DefaultBridgeProbability  float64       `mapstructure:"default_bridge_probability"`
	UseBatchPrediction        bool          `mapstructure:"use_batch_prediction"`
	BatchSize                 int           `mapstructure:"batch_size"`
	EnablePredictionCache     bool          `mapstructure:"enable_prediction_cache"`
	PredictionCacheExpiration time.Duration `mapstructure:"prediction_cache_expiration"`
	MockPredictorSeed         uint64        `mapstructure:"mock_predictor_seed"`
	TimeBucketWidth           time.Duration `mapstructure:"time_bucket_width"` // cache key discretization of bridge ETAs
	CacheSize                 int           `mapstructure:"cache_size"`
}

type Config struct {
	PathEnum    PathEnumConfig    `mapstructure:"path_enum"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Prediction  PredictionConfig  `mapstructure:"prediction"`
}

// PredictionCacheEnabled reports whether predictor results are cached at all.
func (c Config) PredictionCacheEnabled() bool {
	return c.Performance.EnableCaching && c.Prediction.EnablePredictionCache
}

// PredictionCacheTTL is the prediction cache entry lifetime, falling back to the general cache expiration.
func (c Config) PredictionCacheTTL() time.Duration {
	if c.Prediction.PredictionCacheExpiration > 0 {
		return c.Prediction.PredictionCacheExpiration
	}
	return c.Performance.CacheExpirationTime
}

func (c Config) Validate() error {
	s := c.Scoring
	if s.MinProbability < 0 || s.MinProbability > 1 || s.MaxProbability < 0 || s.MaxProbability > 1 {
		return invalidf("scoring probabilities must lie in [0,1], got min=%v max=%v", s.MinProbability, s.MaxProbability)
	}
	if s.MinProbability > s.MaxProbability {
		return invalidf("scoring.min_probability %v exceeds scoring.max_probability %v", s.MinProbability, s.MaxProbability)
	}
	if s.UseLogDomain && s.MinProbability == 0 {
		return invalidf("scoring.min_probability must be > 0 when log domain aggregation is enabled")
	}
	p := c.Prediction
	if p.DefaultBridgeProbability < 0 || p.DefaultBridgeProbability > 1 {
		return invalidf("prediction.default_bridge_probability %v outside [0,1]", p.DefaultBridgeProbability)
	}
	if p.BatchSize <= 0 {
		return invalidf("prediction.batch_size must be positive, got %d", p.BatchSize)
	}
	if p.TimeBucketWidth <= 0 {
		return invalidf("prediction.time_bucket_width must be positive, got %s", p.TimeBucketWidth)
	}
	if p.CacheSize <= 0 {
		return invalidf("prediction.cache_size must be positive, got %d", p.CacheSize)
	}
	if c.PathEnum.MaxPaths < 0 || c.PathEnum.MaxDepth < 0 || c.PathEnum.MaxTravelTime < 0 {
		return invalidf("path_enum bounds must not be negative")
	}
	return nil
}

func invalidf(format string, a ...interface{}) error {
	return util.WrapErrorf(ErrInvalidConfig, util.ErrBadParamInput, "invalid configuration: "+format, a...)
}

// FromViper starts from the preset named by the "preset" key (default development) and overrides the
// fields present in v, e.g. path_enum.max_paths or prediction.time_bucket_width.
func FromViper(v *viper.Viper) (Config, error) {
	name := v.GetString("preset")
	if name == "" {
		name = PresetDevelopment
	}
	cfg, err := Preset(name)
	if err != nil {
		return Config{}, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
