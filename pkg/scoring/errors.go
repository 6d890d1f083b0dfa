package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrPathScoring = errors.New("path scoring failed")
	ErrShortBatch  = errors.New("predictor batch answer is short")
)

// PathScoringError is returned for a route that fails its own contiguity check. Err is the path's
// validation error.
type PathScoringError struct {
	Path string
	Err  error
}

func (e *PathScoringError) Error() string {
	return fmt.Sprintf("cannot score route %s: %v", e.Path, e.Err)
}

func (e *PathScoringError) Unwrap() error {
	return e.Err
}

func (e *PathScoringError) Is(target error) bool {
	return target == ErrPathScoring
}
