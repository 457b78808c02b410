// Package prediction serves low-latency crowd forecasts for a
// (zone, hour) pair. Forecasts live in a TTL-bound cache; when no
// fresh entry exists the cache degrades to the durable peak-hour
// patterns aggregated from historical snapshots. A prediction request
// never fails outright; the worst case is a zero-confidence unknown.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/temple-slot-admission/internal/clock"
	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// PatternSource supplies the durable historical pattern a degraded
// prediction is derived from. Implemented by repository.CrowdRepo.
type PatternSource interface {
	MatchPattern(ctx context.Context, zoneID string, dayOfWeek, hour int) (*model.PeakHourPattern, error)
}

// errKeyMiss is the internal absent-key signal shared by both KV
// implementations.
var errKeyMiss = errors.New("prediction: key miss")

// kv is the minimal key/value surface the cache needs. Production uses
// Redis; an in-memory map serves tests and deployments without Redis.
type kv interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// redisKV stores entries in Redis. The Redis TTL mirrors the entry's
// ExpiresAt as a safety net; the authoritative expiry check is still
// done against the injected clock on read.
type redisKV struct {
	rdb *redis.Client
}

func (r redisKV) get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errKeyMiss
	}
	return b, err
}

func (r redisKV) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// memoryKV is a process-local map with no background sweep. Expired
// entries are simply overwritten or ignored on read; the Cache already
// treats expired entries as absent, so lazy eviction is sufficient.
type memoryKV struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newMemoryKV() *memoryKV {
	return &memoryKV{entries: make(map[string][]byte)}
}

func (m *memoryKV) get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.entries[key]
	if !ok {
		return nil, errKeyMiss
	}
	return b, nil
}

func (m *memoryKV) set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Cache is the prediction cache. Reads and writes of different
// (zone, bucket) keys never contend; concurrent refreshes of the same
// key are last-writer-wins, which is acceptable because forecasts are
// advisory rather than safety-critical.
type Cache struct {
	store    kv
	patterns PatternSource
	clk      clock.Clock
}

// NewCache builds a Cache over Redis. A nil client degrades to the
// in-memory store so the service keeps answering predictions when
// Redis is unreachable at startup.
func NewCache(rdb *redis.Client, patterns PatternSource, clk clock.Clock) *Cache {
	var store kv
	if rdb != nil {
		store = redisKV{rdb: rdb}
	} else {
		store = newMemoryKV()
	}
	return &Cache{store: store, patterns: patterns, clk: clk}
}

// newMemoryCache is the constructor used by tests.
func newMemoryCache(patterns PatternSource, clk clock.Clock) *Cache {
	return &Cache{store: newMemoryKV(), patterns: patterns, clk: clk}
}

// Bucket truncates a time to the hour bucket predictions are keyed by.
func Bucket(t time.Time) time.Time { return t.UTC().Truncate(time.Hour) }

func cacheKey(zoneID string, bucket time.Time) string {
	return fmt.Sprintf("prediction:%s:%d", zoneID, bucket.Unix())
}

// GetPrediction returns the best-effort forecast for a zone at the hour
// containing t. Resolution order:
//
//  1. a live cache entry for the (zone, bucket) key;
//  2. the peak-hour pattern matching the bucket's weekday and hour,
//     scaled by the pattern's confidence; this degraded answer is NOT
//     written back as a fresh entry, only a refresh job may do that;
//  3. a zero-confidence unknown sentinel.
//
// Storage errors are folded into the fallback path: a broken cache
// must degrade a forecast, never fail a booking.
func (c *Cache) GetPrediction(ctx context.Context, zoneID string, t time.Time) (model.PredictionResult, error) {
	bucket := Bucket(t)
	if b, err := c.store.get(ctx, cacheKey(zoneID, bucket)); err == nil {
		var entry model.PredictionCacheEntry
		if jsonErr := json.Unmarshal(b, &entry); jsonErr == nil && c.clk.Now().Before(entry.ExpiresAt) {
			return model.PredictionResult{
				ZoneID:         zoneID,
				PredictedTime:  bucket,
				PredictedValue: entry.PredictedValue,
				Confidence:     entry.Confidence,
				Source:         model.PredictionFresh,
			}, nil
		}
		// Expired or corrupt entries are treated as absent; no delete is
		// issued, the next Refresh overwrites the key.
	}
	pattern, err := c.patterns.MatchPattern(ctx, zoneID, int(bucket.Weekday()), bucket.Hour())
	if err != nil {
		return model.PredictionResult{}, err
	}
	if pattern == nil {
		return model.PredictionResult{
			ZoneID:        zoneID,
			PredictedTime: bucket,
			Source:        model.PredictionUnknown,
		}, nil
	}
	return model.PredictionResult{
		ZoneID:         zoneID,
		PredictedTime:  bucket,
		PredictedValue: uint32(math.Round(math.Max(0, pattern.AvgFootfall*pattern.Confidence))),
		Confidence:     pattern.Confidence,
		Source:         model.PredictionFallback,
	}, nil
}

// Refresh upserts the forecast for the (zone, bucket) key containing t.
// At most one live entry exists per key: a refresh overwrites whatever
// was there. Confidence is clamped to [0,1] on write.
func (c *Cache) Refresh(ctx context.Context, zoneID string, t time.Time, predictedValue uint32, confidence float64, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("prediction: non-positive ttl %s", ttl)
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	now := c.clk.Now()
	bucket := Bucket(t)
	entry := model.PredictionCacheEntry{
		ZoneID:         zoneID,
		PredictedTime:  bucket,
		PredictedValue: predictedValue,
		Confidence:     confidence,
		GeneratedAt:    now,
		ExpiresAt:      now.Add(ttl),
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.set(ctx, cacheKey(zoneID, bucket), b, ttl)
}
