package prediction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// stepClock is a settable clock so tests can cross TTL boundaries
// without sleeping.
type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time          { return c.now }
func (c *stepClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// stubPatterns serves canned peak-hour patterns keyed by
// (weekday, hour).
type stubPatterns struct {
	patterns map[[2]int]*model.PeakHourPattern
	err      error
	calls    int
}

func (s *stubPatterns) MatchPattern(_ context.Context, zoneID string, dayOfWeek, hour int) (*model.PeakHourPattern, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.patterns[[2]int{dayOfWeek, hour}]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.ZoneID = zoneID
	return &cp, nil
}

// Wednesday 2026-08-26 10:30 UTC; bucket is 10:00.
var predNow = time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)

func TestGetPrediction_FreshEntryWins(t *testing.T) {
	clk := &stepClock{now: predNow}
	patterns := &stubPatterns{}
	cache := newMemoryCache(patterns, clk)

	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 120, 0.85, 30*time.Minute))

	res, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionFresh, res.Source)
	assert.Equal(t, uint32(120), res.PredictedValue)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.Equal(t, Bucket(predNow), res.PredictedTime)
	assert.Zero(t, patterns.calls, "a live entry must not touch the pattern store")
}

func TestGetPrediction_ExpiredEntryFallsBackToPattern(t *testing.T) {
	clk := &stepClock{now: predNow}
	patterns := &stubPatterns{patterns: map[[2]int]*model.PeakHourPattern{
		{int(predNow.Weekday()), predNow.Hour()}: {
			DayOfWeek:   int(predNow.Weekday()),
			StartHour:   predNow.Hour(),
			EndHour:     predNow.Hour() + 1,
			AvgFootfall: 200,
			Confidence:  0.6,
		},
	}}
	cache := newMemoryCache(patterns, clk)

	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 150, 0.9, 10*time.Minute))
	clk.advance(11 * time.Minute)

	res, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionFallback, res.Source)
	assert.Equal(t, uint32(120), res.PredictedValue, "fallback value is avgFootfall scaled by confidence")
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
}

func TestGetPrediction_FallbackIsNotPromotedToFresh(t *testing.T) {
	clk := &stepClock{now: predNow}
	patterns := &stubPatterns{patterns: map[[2]int]*model.PeakHourPattern{
		{int(predNow.Weekday()), predNow.Hour()}: {AvgFootfall: 100, Confidence: 0.5},
	}}
	cache := newMemoryCache(patterns, clk)

	first, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	require.Equal(t, model.PredictionFallback, first.Source)

	// A second read goes back to the pattern store: the degraded answer
	// was not written into the cache.
	second, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionFallback, second.Source)
	assert.Equal(t, 2, patterns.calls)
}

func TestGetPrediction_UnknownWhenNoPatternMatches(t *testing.T) {
	clk := &stepClock{now: predNow}
	cache := newMemoryCache(&stubPatterns{}, clk)

	res, err := cache.GetPrediction(context.Background(), "exit", predNow)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionUnknown, res.Source)
	assert.Zero(t, res.PredictedValue)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, Bucket(predNow), res.PredictedTime)
}

func TestGetPrediction_PatternStoreErrorSurfaces(t *testing.T) {
	clk := &stepClock{now: predNow}
	cache := newMemoryCache(&stubPatterns{err: errors.New("db down")}, clk)

	_, err := cache.GetPrediction(context.Background(), "gate", predNow)
	assert.Error(t, err)
}

func TestGetPrediction_KeysAreScopedPerZoneAndBucket(t *testing.T) {
	clk := &stepClock{now: predNow}
	cache := newMemoryCache(&stubPatterns{}, clk)

	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 80, 0.7, time.Hour))

	// Same bucket, other zone: unknown.
	other, err := cache.GetPrediction(context.Background(), "hall", predNow)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionUnknown, other.Source)

	// Same zone, next bucket: unknown.
	next, err := cache.GetPrediction(context.Background(), "gate", predNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.PredictionUnknown, next.Source)

	// The original key still answers fresh.
	res, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.Equal(t, model.PredictionFresh, res.Source)
}

func TestRefresh_OverwritesExistingEntry(t *testing.T) {
	clk := &stepClock{now: predNow}
	cache := newMemoryCache(&stubPatterns{}, clk)

	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 50, 0.4, time.Hour))
	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 75, 0.8, time.Hour))

	res, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.Equal(t, uint32(75), res.PredictedValue)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestRefresh_ClampsConfidenceAndRejectsBadTTL(t *testing.T) {
	clk := &stepClock{now: predNow}
	cache := newMemoryCache(&stubPatterns{}, clk)

	assert.Error(t, cache.Refresh(context.Background(), "gate", predNow, 10, 0.5, 0))
	assert.Error(t, cache.Refresh(context.Background(), "gate", predNow, 10, 0.5, -time.Minute))

	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 10, 1.7, time.Hour))
	res, err := cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)

	require.NoError(t, cache.Refresh(context.Background(), "gate", predNow, 10, -0.3, time.Hour))
	res, err = cache.GetPrediction(context.Background(), "gate", predNow)
	require.NoError(t, err)
	assert.Zero(t, res.Confidence)
}

func TestBucket_TruncatesToHourInUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	local := time.Date(2026, 8, 26, 15, 45, 12, 0, loc) // 10:45:12 UTC

	assert.Equal(t, time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC), Bucket(local))
	assert.Equal(t, Bucket(predNow), Bucket(local), "times in the same UTC hour share a bucket")
}
