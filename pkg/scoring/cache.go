package scoring

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lintang-b-s/bridgeroute/pkg/metrics"
)

// cacheKey is a bridge and the start of the time bucket its ETA falls in.
type cacheKey struct {
	bridgeID string
	bucket   int64 // unix seconds
}

// CacheStatistics counters only reset on ClearCaches.
type CacheStatistics struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// predictionCache holds predictor answers per (bridge, eta bucket). every read, write and counter update
// happens under mu.
type predictionCache struct {
	mu      sync.Mutex
	enabled bool
	width   time.Duration
	entries *expirable.LRU[cacheKey, float64]
	hits    int64
	misses  int64
	sink    metrics.Sink
}

func newPredictionCache(enabled bool, size int, ttl, width time.Duration, sink metrics.Sink) *predictionCache {
	c := &predictionCache{
		enabled: enabled,
		width:   width,
		sink:    sink,
	}
	c.entries = expirable.NewLRU[cacheKey, float64](max(size, 1), func(cacheKey, float64) {
		c.sink.CacheEviction()
	}, ttl)
	return c
}

// bucketStart discretizes eta to the start of its bucket.
func (c *predictionCache) bucketStart(eta time.Time) time.Time {
	return eta.Truncate(c.width)
}

func (c *predictionCache) key(bridgeID string, eta time.Time) cacheKey {
	return cacheKey{bridgeID: bridgeID, bucket: c.bucketStart(eta).Unix()}
}

// lookup counts exactly one hit or miss.
func (c *predictionCache) lookup(k cacheKey) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled {
		if p, ok := c.entries.Get(k); ok {
			c.hits++
			c.sink.CacheHit()
			return p, true
		}
	}
	c.misses++
	c.sink.CacheMiss()
	return 0, false
}

func (c *predictionCache) store(k cacheKey, p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.entries.Add(k, p)
	c.sink.SetCacheEntries(c.entries.Len())
}

func (c *predictionCache) statistics() CacheStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStatistics{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: c.entries.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

func (c *predictionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
	c.hits = 0
	c.misses = 0
	c.sink.SetCacheEntries(0)
}
