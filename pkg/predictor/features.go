package predictor

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/util"
)

// FeatureCount is the length of the lift feature vector.
const FeatureCount = 14

// feature vector layout
const (
	FeatureBridgeOrdinal = iota
	FeatureHorizonMinutes
	FeatureMinuteSin
	FeatureMinuteCos
	FeatureDayOfWeekSin
	FeatureDayOfWeekCos
	FeatureRecentOpen5m
	FeatureRecentOpen30m
	FeatureDetourDelta
	FeatureCrossingRate
	FeatureViaRoutable
	FeatureViaPenalty
	FeatureGateAnomaly
	FeatureDetourFraction
)

const (
	maxHorizonMinutes = 20.0
	maxViaPenaltySec  = 900.0
	minGateAnomaly    = 1.0
	maxGateAnomaly    = 8.0
	minutesPerDay     = 1440.0
	daysPerWeek       = 7.0
)

// LiveSignals are the recent observations for a bridge. CrossingsObserved == 0 means the crossing rate is unknown.
type LiveSignals struct {
	RecentOpen5m      float64
	RecentOpen30m     float64
	DetourDelta       float64
	CrossingsOK       int
	CrossingsObserved int
	ViaRoutable       bool
	ViaPenaltySeconds float64
	GateAnomaly       float64
	DetourFraction    float64
}

// DefaultLiveSignals is used when no signal source is wired: bridge closed recently, no detour, unknown traffic.
func DefaultLiveSignals() LiveSignals {
	return LiveSignals{
		ViaRoutable: true,
		GateAnomaly: minGateAnomaly,
	}
}

// BridgeOrdinal maps a bridge id to the numeric feature. numeric ids are used as is.
func BridgeOrdinal(bridgeID string) float64 {
	if n, err := strconv.Atoi(bridgeID); err == nil && n >= 0 {
		return float64(n)
	}
	h := fnv.New32a()
	h.Write([]byte(bridgeID))
	return float64(h.Sum32() % (1 << 16))
}

func cyclical(x, period float64) (float64, float64) {
	ang := 2 * math.Pi * x / period
	return math.Sin(ang), math.Cos(ang)
}

// BuildFeatures encodes the lift feature vector for crossing bridgeID at eta when leaving at departure.
func BuildFeatures(bridgeID string, departure, eta time.Time, signals LiveSignals) []float64 {
	f := make([]float64, FeatureCount)

	f[FeatureBridgeOrdinal] = BridgeOrdinal(bridgeID)
	f[FeatureHorizonMinutes] = util.Clamp(eta.Sub(departure).Minutes(), 0, maxHorizonMinutes)

	at := eta.UTC()
	f[FeatureMinuteSin], f[FeatureMinuteCos] = cyclical(float64(at.Hour()*60+at.Minute()), minutesPerDay)
	dow := (int(at.Weekday())+6)%7 + 1 // monday = 1
	f[FeatureDayOfWeekSin], f[FeatureDayOfWeekCos] = cyclical(float64(dow), daysPerWeek)

	f[FeatureRecentOpen5m] = util.Clamp(signals.RecentOpen5m, 0, 1)
	f[FeatureRecentOpen30m] = util.Clamp(signals.RecentOpen30m, 0, 1)
	f[FeatureDetourDelta] = signals.DetourDelta
	if signals.CrossingsObserved > 0 {
		f[FeatureCrossingRate] = float64(signals.CrossingsOK) / float64(signals.CrossingsObserved)
	} else {
		f[FeatureCrossingRate] = -1
	}
	if signals.ViaRoutable {
		f[FeatureViaRoutable] = 1
	}
	f[FeatureViaPenalty] = util.Clamp(signals.ViaPenaltySeconds, 0, maxViaPenaltySec) / maxViaPenaltySec
	f[FeatureGateAnomaly] = util.Clamp(signals.GateAnomaly, minGateAnomaly, maxGateAnomaly) / maxGateAnomaly
	f[FeatureDetourFraction] = signals.DetourFraction
	return f
}

// ValidateFeatures checks the vector length, finiteness and the ranges BuildFeatures produces.
func ValidateFeatures(features []float64) error {
	if len(features) != FeatureCount {
		return &InvalidFeaturesError{Reason: fmt.Sprintf("expected %d features, got %d", FeatureCount, len(features))}
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidFeaturesError{Reason: fmt.Sprintf("feature %d is not finite", i)}
		}
	}

	inRange := func(i int, lo, hi float64) error {
		if features[i] < lo || features[i] > hi {
			return &InvalidFeaturesError{Reason: fmt.Sprintf("feature %d = %v is outside [%v, %v]", i, features[i], lo, hi)}
		}
		return nil
	}
	checks := []struct {
		i      int
		lo, hi float64
	}{
		{FeatureBridgeOrdinal, 0, math.MaxUint32},
		{FeatureHorizonMinutes, 0, maxHorizonMinutes},
		{FeatureMinuteSin, -1, 1},
		{FeatureMinuteCos, -1, 1},
		{FeatureDayOfWeekSin, -1, 1},
		{FeatureDayOfWeekCos, -1, 1},
		{FeatureRecentOpen5m, 0, 1},
		{FeatureRecentOpen30m, 0, 1},
		{FeatureCrossingRate, -1, 1},
		{FeatureViaRoutable, 0, 1},
		{FeatureViaPenalty, 0, 1},
		{FeatureGateAnomaly, minGateAnomaly / maxGateAnomaly, 1},
	}
	for _, c := range checks {
		if err := inRange(c.i, c.lo, c.hi); err != nil {
			return err
		}
	}
	return nil
}
