package predictor

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"sync/atomic"
	"time"
)

const (
	defaultMockMaxBatchSize = 32
	mockMinProbability      = 0.05
	mockMaxProbability      = 0.95
)

// MockPredictor is a deterministic in-process predictor. the probability for a (bridge, eta minute) pair is a
// pure function of the seed, so identically seeded instances agree.
type MockPredictor struct {
	seed               uint64
	defaultProbability float64
	maxBatchSize       int
	supported          map[string]struct{} // nil supports every bridge
	constant           *float64
	perBridge          map[string]float64

	predictCalls atomic.Int64
	batchCalls   atomic.Int64
	predicted    atomic.Int64
}

type MockOption func(*MockPredictor)

// WithSupportedBridges restricts Supports to ids.
func WithSupportedBridges(ids ...string) MockOption {
	return func(m *MockPredictor) {
		m.supported = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			m.supported[id] = struct{}{}
		}
	}
}

// WithConstantProbability answers p for every bridge and time.
func WithConstantProbability(p float64) MockOption {
	return func(m *MockPredictor) {
		m.constant = &p
	}
}

func WithBridgeProbability(bridgeID string, p float64) MockOption {
	return func(m *MockPredictor) {
		if m.perBridge == nil {
			m.perBridge = make(map[string]float64)
		}
		m.perBridge[bridgeID] = p
	}
}

func WithMaxBatchSize(n int) MockOption {
	return func(m *MockPredictor) {
		m.maxBatchSize = n
	}
}

func WithDefaultProbability(p float64) MockOption {
	return func(m *MockPredictor) {
		m.defaultProbability = p
	}
}

func NewMockPredictor(seed uint64, opts ...MockOption) *MockPredictor {
	m := &MockPredictor{
		seed:               seed,
		defaultProbability: 0.9,
		maxBatchSize:       defaultMockMaxBatchSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockPredictor) Supports(bridgeID string) bool {
	if m.supported == nil {
		return true
	}
	_, ok := m.supported[bridgeID]
	return ok
}

func (m *MockPredictor) DefaultProbability() float64 {
	return m.defaultProbability
}

func (m *MockPredictor) MaxBatchSize() int {
	return m.maxBatchSize
}

func (m *MockPredictor) Predict(ctx context.Context, bridgeID string, eta time.Time, features []float64) (Prediction, error) {
	m.predictCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	return m.predict(bridgeID, eta, features)
}

func (m *MockPredictor) PredictBatch(ctx context.Context, inputs []Input) (BatchResult, error) {
	m.batchCalls.Add(1)
	start := time.Now()
	if len(inputs) > m.maxBatchSize {
		return BatchResult{}, &BatchSizeExceededError{Requested: len(inputs), MaxBatchSize: m.maxBatchSize}
	}
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	predictions := make([]Prediction, len(inputs))
	for i, in := range inputs {
		p, err := m.predict(in.BridgeID, in.ETA, in.Features)
		if err != nil {
			return BatchResult{}, err
		}
		predictions[i] = p
	}
	return BatchResult{
		Predictions:    predictions,
		ProcessingTime: time.Since(start),
		BatchSize:      len(inputs),
	}, nil
}

func (m *MockPredictor) predict(bridgeID string, eta time.Time, features []float64) (Prediction, error) {
	if !m.Supports(bridgeID) {
		return Prediction{}, &UnsupportedBridgeError{BridgeID: bridgeID}
	}
	if err := ValidateFeatures(features); err != nil {
		return Prediction{}, err
	}
	m.predicted.Add(1)

	u := m.unit(bridgeID, eta)
	p := mockMinProbability + (mockMaxProbability-mockMinProbability)*u
	if v, ok := m.perBridge[bridgeID]; ok {
		p = v
	} else if m.constant != nil {
		p = *m.constant
	}
	return Prediction{
		BridgeID:        bridgeID,
		ETA:             eta,
		OpenProbability: p,
		Confidence:      0.5 + 0.5*u,
	}, nil
}

// unit hashes (seed, bridge, eta minute) into [0,1).
func (m *MockPredictor) unit(bridgeID string, eta time.Time) float64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], m.seed)
	binary.LittleEndian.PutUint64(buf[8:], uint64(eta.Unix()/60))
	h := fnv.New64a()
	h.Write(buf[:])
	h.Write([]byte(bridgeID))
	return float64(h.Sum64()>>11) / float64(1<<53)
}

// PredictCalls counts Predict invocations.
func (m *MockPredictor) PredictCalls() int64 {
	return m.predictCalls.Load()
}

func (m *MockPredictor) BatchCalls() int64 {
	return m.batchCalls.Load()
}

// PredictedInputs counts every (bridge, eta) answered, single or batched.
func (m *MockPredictor) PredictedInputs() int64 {
	return m.predicted.Load()
}
