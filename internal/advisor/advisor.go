// Package advisor translates raw slot capacity and predicted crowd into
// the admission ceiling the booking path actually enforces, and flags
// zones at risk for downstream alerting. The policy is a plain linear
// rule, not a model.
package advisor

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/iliyamo/temple-slot-admission/internal/config"
	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/queue"
)

// PredictionReader is the read-only surface of the prediction cache.
type PredictionReader interface {
	GetPrediction(ctx context.Context, zoneID string, t time.Time) (model.PredictionResult, error)
}

// SnapshotSource supplies the latest observed footfall per zone.
// Implemented by repository.CrowdRepo.
type SnapshotSource interface {
	LatestSnapshot(ctx context.Context, zoneID string) (*model.CrowdSnapshot, error)
}

// Notifier receives crowd-risk signals. Implemented by queue.Publisher;
// may be nil when no broker is configured.
type Notifier interface {
	PublishCrowdRisk(ctx context.Context, event queue.CrowdRiskEvent) error
}

// Advisor applies the crowd-risk policy. All reads it performs tolerate
// staleness; only the slot counters downstream require strict
// consistency.
type Advisor struct {
	predictions PredictionReader
	snapshots   SnapshotSource
	notifier    Notifier
	cfg         config.AdvisorConfig
}

// New constructs an Advisor. notifier may be nil; risk signals are then
// only visible through the IsOverCapacityRisk return value.
func New(predictions PredictionReader, snapshots SnapshotSource, notifier Notifier, cfg config.AdvisorConfig) *Advisor {
	return &Advisor{predictions: predictions, snapshots: snapshots, notifier: notifier, cfg: cfg}
}

// EffectiveCapacity returns the admission ceiling for a slot. When the
// predicted occupancy ratio for the slot's zone and start hour exceeds
// the high-water mark with confidence above the threshold, capacity is
// reduced linearly with how far the ratio overshoots, floored at a
// configured fraction of raw capacity. Otherwise the raw capacity is
// returned unchanged. The result never exceeds the raw capacity.
//
// A prediction failure degrades to the raw capacity: forecasting is
// advisory and must never block admissions on its own.
func (a *Advisor) EffectiveCapacity(ctx context.Context, slot *model.Slot) (uint32, error) {
	if slot.Capacity == 0 {
		return 0, nil
	}
	pred, err := a.predictions.GetPrediction(ctx, slot.ZoneID, slot.StartTime)
	if err != nil {
		log.Printf("advisor: prediction for zone %s failed: %v; using raw capacity", slot.ZoneID, err)
		return slot.Capacity, nil
	}
	ratio := float64(pred.PredictedValue) / float64(slot.Capacity)
	if pred.Confidence <= a.cfg.ConfidenceThreshold || ratio <= a.cfg.HighWaterMark {
		return slot.Capacity, nil
	}
	factor := 1 - a.cfg.ReductionSlope*(ratio-a.cfg.HighWaterMark)
	if factor < a.cfg.MinCapacityFraction {
		factor = a.cfg.MinCapacityFraction
	}
	if factor > 1 {
		factor = 1
	}
	eff := uint32(math.Round(float64(slot.Capacity) * factor))
	if eff > slot.Capacity {
		eff = slot.Capacity
	}
	return eff, nil
}

// IsOverCapacityRisk reports whether a zone's latest observed footfall
// exceeds capacity times the high-water mark. When it does, a
// CrowdRiskEvent is published (best effort) so operators can act before
// visitors raise SOS alerts. Zones with no observations are never at
// risk; there is nothing to act on.
func (a *Advisor) IsOverCapacityRisk(ctx context.Context, zoneID string) (bool, error) {
	snap, err := a.snapshots.LatestSnapshot(ctx, zoneID)
	if err != nil {
		return false, err
	}
	if snap == nil || snap.Capacity == 0 {
		return false, nil
	}
	ratio := float64(snap.Footfall) / float64(snap.Capacity)
	if ratio <= a.cfg.HighWaterMark {
		return false, nil
	}
	if a.notifier != nil {
		event := queue.CrowdRiskEvent{
			ZoneID:     snap.ZoneID,
			Footfall:   snap.Footfall,
			Capacity:   snap.Capacity,
			Ratio:      ratio,
			Level:      string(model.ClassifyCrowd(snap.Footfall, snap.Capacity)),
			ObservedAt: snap.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := a.notifier.PublishCrowdRisk(ctx, event); err != nil {
			log.Printf("advisor: crowd risk publish for zone %s failed: %v", zoneID, err)
		}
	}
	return true, nil
}
