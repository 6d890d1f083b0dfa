package predictor

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedBridge = errors.New("unsupported bridge")
	ErrInvalidFeatures   = errors.New("invalid features")
	ErrBatchSizeExceeded = errors.New("batch size exceeded")
)

type UnsupportedBridgeError struct {
	BridgeID string
}

func (e *UnsupportedBridgeError) Error() string {
	return fmt.Sprintf("bridge %q is not supported by the predictor", e.BridgeID)
}

func (e *UnsupportedBridgeError) Is(target error) bool {
	return target == ErrUnsupportedBridge
}

type InvalidFeaturesError struct {
	Reason string
}

func (e *InvalidFeaturesError) Error() string {
	return "invalid features: " + e.Reason
}

func (e *InvalidFeaturesError) Is(target error) bool {
	return target == ErrInvalidFeatures
}

type BatchSizeExceededError struct {
	Requested    int
	MaxBatchSize int
}

func (e *BatchSizeExceededError) Error() string {
	return fmt.Sprintf("batch of %d inputs exceeds the maximum batch size %d", e.Requested, e.MaxBatchSize)
}

func (e *BatchSizeExceededError) Is(target error) bool {
	return target == ErrBatchSizeExceeded
}

// ErrorKind is a stable label for metrics and wire payloads.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedBridge):
		return "unsupported_bridge"
	case errors.Is(err, ErrInvalidFeatures):
		return "invalid_features"
	case errors.Is(err, ErrBatchSizeExceeded):
		return "batch_size_exceeded"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
