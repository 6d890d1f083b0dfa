package metrics

import "time"

// Sink receives operational measurements of the routing core. implementations must be safe for
// concurrent use. nothing the core returns depends on the installed sink.
type Sink interface {
	CacheHit()
	CacheMiss()
	CacheEviction()
	SetCacheEntries(n int)
	// ObservePredictorLatency records one predictor round trip. mode is "single" or "batch".
	ObservePredictorLatency(mode string, d time.Duration)
	PredictorError(kind string)
	ObserveEnumeration(paths int, d time.Duration)
}

// NoopSink discards everything.
type NoopSink struct{}

func (NoopSink) CacheHit() {}
func (NoopSink) CacheMiss() {}
func (NoopSink) CacheEviction() {}
func (NoopSink) SetCacheEntries(int) {}
func (NoopSink) ObservePredictorLatency(string, time.Duration) {}
func (NoopSink) PredictorError(string) {}
func (NoopSink) ObserveEnumeration(int, time.Duration) {}

// OrNoop returns s, or a NoopSink when s is nil.
func OrNoop(s Sink) Sink {
	if s == nil {
		return NoopSink{}
	}
	return s
}
