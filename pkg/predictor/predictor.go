package predictor

import (
	"context"
	"time"
)

// BridgeOpenPredictor estimates how likely a bridge crossing is passable at a given arrival time.
type BridgeOpenPredictor interface {
	Predict(ctx context.Context, bridgeID string, eta time.Time, features []float64) (Prediction, error)
	// PredictBatch fails with ErrBatchSizeExceeded when len(inputs) > MaxBatchSize(). predictions follow input order.
	PredictBatch(ctx context.Context, inputs []Input) (BatchResult, error)
	Supports(bridgeID string) bool
	DefaultProbability() float64
	MaxBatchSize() int
}

// Prediction is the oracle answer for one (bridge, eta). OpenProbability and Confidence are in [0,1].
type Prediction struct {
	BridgeID        string    `json:"bridge_id"`
	ETA             time.Time `json:"eta"`
	OpenProbability float64   `json:"open_probability"`
	Confidence      float64   `json:"confidence"`
}

type Input struct {
	BridgeID string    `json:"bridge_id"`
	ETA      time.Time `json:"eta"`
	Features []float64 `json:"features"`
}

type BatchResult struct {
	Predictions    []Prediction  `json:"predictions"`
	ProcessingTime time.Duration `json:"processing_time"`
	BatchSize      int           `json:"batch_size"`
}
