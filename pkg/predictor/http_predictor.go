package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPPredictorConfig configures the remote oracle client.
type HTTPPredictorConfig struct {
	BaseURL            string
	Timeout            time.Duration
	RequestsPerSecond  float64 // <= 0 disables outbound rate limiting
	Burst              int
	MaxBatchSize       int
	DefaultProbability float64
	SupportedBridges   []string // empty supports every bridge
}

// HTTPPredictor calls a remote prediction service over JSON:
//
//	POST {base}/predict        {bridge_id, eta, features}   -> Prediction
//	POST {base}/predict/batch  {inputs: [...]}              -> {predictions, batch_size, processing_time_ms}
//
// non-2xx answers carry {"error": {"code", "message"}}.
type HTTPPredictor struct {
	cfg       HTTPPredictorConfig
	client    *http.Client
	limiter   *rate.Limiter
	supported map[string]struct{}
	log       *zap.Logger
}

func NewHTTPPredictor(cfg HTTPPredictorConfig, log *zap.Logger) *HTTPPredictor {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMockMaxBatchSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}

	var supported map[string]struct{}
	if len(cfg.SupportedBridges) > 0 {
		supported = make(map[string]struct{}, len(cfg.SupportedBridges))
		for _, id := range cfg.SupportedBridges {
			supported[id] = struct{}{}
		}
	}

	return &HTTPPredictor{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		supported: supported,
		log:       log,
	}
}

func (p *HTTPPredictor) Supports(bridgeID string) bool {
	if p.supported == nil {
		return true
	}
	_, ok := p.supported[bridgeID]
	return ok
}

func (p *HTTPPredictor) DefaultProbability() float64 {
	return p.cfg.DefaultProbability
}

func (p *HTTPPredictor) MaxBatchSize() int {
	return p.cfg.MaxBatchSize
}

func (p *HTTPPredictor) Predict(ctx context.Context, bridgeID string, eta time.Time, features []float64) (Prediction, error) {
	if !p.Supports(bridgeID) {
		return Prediction{}, &UnsupportedBridgeError{BridgeID: bridgeID}
	}
	if err := ValidateFeatures(features); err != nil {
		return Prediction{}, err
	}

	var pred Prediction
	err := p.post(ctx, "/predict", Input{BridgeID: bridgeID, ETA: eta, Features: features}, &pred)
	if err != nil {
		return Prediction{}, err
	}
	return pred, nil
}

type batchRequest struct {
	Inputs []Input `json:"inputs"`
}

type batchResponse struct {
	Predictions      []Prediction `json:"predictions"`
	BatchSize        int          `json:"batch_size"`
	ProcessingTimeMs float64      `json:"processing_time_ms"`
}

func (p *HTTPPredictor) PredictBatch(ctx context.Context, inputs []Input) (BatchResult, error) {
	if len(inputs) > p.cfg.MaxBatchSize {
		return BatchResult{}, &BatchSizeExceededError{Requested: len(inputs), MaxBatchSize: p.cfg.MaxBatchSize}
	}
	for _, in := range inputs {
		if !p.Supports(in.BridgeID) {
			return BatchResult{}, &UnsupportedBridgeError{BridgeID: in.BridgeID}
		}
		if err := ValidateFeatures(in.Features); err != nil {
			return BatchResult{}, err
		}
	}

	var resp batchResponse
	if err := p.post(ctx, "/predict/batch", batchRequest{Inputs: inputs}, &resp); err != nil {
		return BatchResult{}, err
	}
	if len(resp.Predictions) != len(inputs) {
		return BatchResult{}, fmt.Errorf("predictor returned %d predictions for %d inputs", len(resp.Predictions), len(inputs))
	}
	return BatchResult{
		Predictions:    resp.Predictions,
		ProcessingTime: time.Duration(resp.ProcessingTimeMs * float64(time.Millisecond)),
		BatchSize:      len(inputs),
	}, nil
}

type errorBody struct {
	Error struct {
		Code         string `json:"code"`
		Message      string `json:"message"`
		BridgeID     string `json:"bridge_id,omitempty"`
		Requested    int    `json:"requested,omitempty"`
		MaxBatchSize int    `json:"max_batch_size,omitempty"`
	} `json:"error"`
}

func (p *HTTPPredictor) post(ctx context.Context, path string, body, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode predictor request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build predictor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("predictor request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read predictor response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return p.decodeError(path, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode predictor response: %w", err)
	}
	return nil
}

// decodeError maps the remote error code back onto the typed predictor errors.
func (p *HTTPPredictor) decodeError(path string, status int, raw []byte) error {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Error.Code == "" {
		p.log.Error("predictor returned an unexpected error body",
			zap.String("path", path), zap.Int("status", status))
		return fmt.Errorf("predictor %s: status %d", path, status)
	}

	switch eb.Error.Code {
	case "unsupported_bridge":
		return &UnsupportedBridgeError{BridgeID: eb.Error.BridgeID}
	case "invalid_features":
		return &InvalidFeaturesError{Reason: eb.Error.Message}
	case "batch_size_exceeded":
		return &BatchSizeExceededError{Requested: eb.Error.Requested, MaxBatchSize: eb.Error.MaxBatchSize}
	}
	return fmt.Errorf("predictor %s: status %d: %s: %s", path, status, eb.Error.Code, eb.Error.Message)
}
