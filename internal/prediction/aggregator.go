package prediction

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/iliyamo/temple-slot-admission/internal/clock"
	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// PatternStore is the persistence surface the aggregator writes to and
// reads raw material from. Implemented by repository.CrowdRepo.
type PatternStore interface {
	AggregateSnapshots(ctx context.Context, zoneID string, since time.Time) ([]model.PeakHourPattern, error)
	UpsertPattern(ctx context.Context, p *model.PeakHourPattern) error
}

// lookaheadBuckets is how many upcoming hour buckets get a fresh cache
// entry after each aggregation pass.
const lookaheadBuckets = 4

// Aggregator recomputes peak-hour patterns from raw crowd snapshots and
// primes the prediction cache for the next few hours. It is the only
// component that writes fresh cache entries; plain reads never do.
type Aggregator struct {
	store PatternStore
	cache *Cache
	clk   clock.Clock

	zones  []string
	window time.Duration
	ttl    time.Duration
}

// NewAggregator builds an Aggregator covering the given zones. window
// bounds how far back snapshots contribute to a pattern; ttl is the
// lifetime of the cache entries the pass writes.
func NewAggregator(store PatternStore, cache *Cache, clk clock.Clock, zones []string, window, ttl time.Duration) *Aggregator {
	return &Aggregator{store: store, cache: cache, clk: clk, zones: zones, window: window, ttl: ttl}
}

// RunAggregation recomputes the patterns of a single zone from the
// snapshots inside the lookback window, persists them, and refreshes
// the cache entries for the next few hour buckets. It is an explicit
// trigger so operators can force a recomputation outside the schedule.
func (a *Aggregator) RunAggregation(ctx context.Context, zoneID string, window time.Duration) error {
	if window <= 0 {
		window = a.window
	}
	now := a.clk.Now()
	patterns, err := a.store.AggregateSnapshots(ctx, zoneID, now.Add(-window))
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", zoneID, err)
	}
	byKey := make(map[[2]int]model.PeakHourPattern, len(patterns))
	for i := range patterns {
		p := patterns[i]
		if err := a.store.UpsertPattern(ctx, &p); err != nil {
			return fmt.Errorf("upsert pattern %s d%d h%d: %w", zoneID, p.DayOfWeek, p.StartHour, err)
		}
		byKey[[2]int{p.DayOfWeek, p.StartHour}] = p
	}
	// Prime the cache for the upcoming buckets from the patterns just
	// computed. Hours with no pattern are skipped; reads for them fall
	// through to the unknown sentinel.
	for i := 0; i < lookaheadBuckets; i++ {
		bucket := Bucket(now.Add(time.Duration(i) * time.Hour))
		p, ok := byKey[[2]int{int(bucket.Weekday()), bucket.Hour()}]
		if !ok {
			continue
		}
		value := uint32(math.Round(math.Max(0, p.AvgFootfall)))
		if err := a.cache.Refresh(ctx, zoneID, bucket, value, p.Confidence, a.ttl); err != nil {
			return fmt.Errorf("refresh %s @ %s: %w", zoneID, bucket.Format(time.RFC3339), err)
		}
	}
	return nil
}

// Start runs the aggregation on a fixed interval until the context is
// cancelled. A failure in one zone is logged and does not stop the
// loop or the other zones, mirroring how the alert consumer keeps
// running through individual message failures.
func (a *Aggregator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	a.runAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runAll(ctx)
		}
	}
}

func (a *Aggregator) runAll(ctx context.Context) {
	for _, zone := range a.zones {
		if err := a.RunAggregation(ctx, zone, a.window); err != nil {
			log.Printf("aggregator: zone %s: %v", zone, err)
		}
	}
}
