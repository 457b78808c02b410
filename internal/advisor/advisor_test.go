package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/temple-slot-admission/internal/config"
	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/queue"
)

// stubPredictions returns a canned prediction for every zone.
type stubPredictions struct {
	result model.PredictionResult
	err    error
}

func (s stubPredictions) GetPrediction(_ context.Context, zoneID string, t time.Time) (model.PredictionResult, error) {
	if s.err != nil {
		return model.PredictionResult{}, s.err
	}
	r := s.result
	r.ZoneID = zoneID
	r.PredictedTime = t.UTC().Truncate(time.Hour)
	return r, nil
}

// stubSnapshots returns a canned latest snapshot.
type stubSnapshots struct {
	snap *model.CrowdSnapshot
	err  error
}

func (s stubSnapshots) LatestSnapshot(context.Context, string) (*model.CrowdSnapshot, error) {
	return s.snap, s.err
}

// riskRecorder captures published crowd-risk events.
type riskRecorder struct {
	events []queue.CrowdRiskEvent
	err    error
}

func (r *riskRecorder) PublishCrowdRisk(_ context.Context, e queue.CrowdRiskEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func testAdvisorConfig() config.AdvisorConfig {
	return config.AdvisorConfig{
		HighWaterMark:       0.9,
		ConfidenceThreshold: 0.6,
		ReductionSlope:      0.5,
		MinCapacityFraction: 0.3,
	}
}

func slotWithCapacity(capacity uint32) *model.Slot {
	return &model.Slot{
		ID:        1,
		ZoneID:    "gate",
		StartTime: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC),
		Capacity:  capacity,
		IsActive:  true,
	}
}

func TestEffectiveCapacity_RawWhenRatioBelowHighWaterMark(t *testing.T) {
	preds := stubPredictions{result: model.PredictionResult{PredictedValue: 80, Confidence: 0.9, Source: model.PredictionFresh}}
	adv := New(preds, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(100))

	require.NoError(t, err)
	assert.Equal(t, uint32(100), eff)
}

func TestEffectiveCapacity_RawWhenConfidenceTooLow(t *testing.T) {
	// Ratio 1.5 would normally trigger a reduction, but the forecast is
	// not trusted enough to act on.
	preds := stubPredictions{result: model.PredictionResult{PredictedValue: 150, Confidence: 0.5, Source: model.PredictionFallback}}
	adv := New(preds, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(100))

	require.NoError(t, err)
	assert.Equal(t, uint32(100), eff)
}

func TestEffectiveCapacity_LinearReduction(t *testing.T) {
	// ratio 1.1, overshoot 0.2, factor 1 - 0.5*0.2 = 0.9 → 90 of 100.
	preds := stubPredictions{result: model.PredictionResult{PredictedValue: 110, Confidence: 0.9, Source: model.PredictionFresh}}
	adv := New(preds, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(100))

	require.NoError(t, err)
	assert.Equal(t, uint32(90), eff)
}

func TestEffectiveCapacity_FlooredAtMinFraction(t *testing.T) {
	// ratio 3.0 drives the factor far below the floor; ceiling stops at
	// 30% of raw capacity.
	preds := stubPredictions{result: model.PredictionResult{PredictedValue: 300, Confidence: 0.95, Source: model.PredictionFresh}}
	adv := New(preds, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(100))

	require.NoError(t, err)
	assert.Equal(t, uint32(30), eff)
}

func TestEffectiveCapacity_NeverExceedsRawCapacity(t *testing.T) {
	cfg := testAdvisorConfig()
	adv := New(stubPredictions{result: model.PredictionResult{PredictedValue: 95, Confidence: 0.9}}, stubSnapshots{}, nil, cfg)

	for _, capacity := range []uint32{1, 10, 100, 5000} {
		eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(capacity))
		require.NoError(t, err)
		assert.LessOrEqual(t, eff, capacity)
	}
}

func TestEffectiveCapacity_ZeroCapacitySlot(t *testing.T) {
	adv := New(stubPredictions{}, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(0))

	require.NoError(t, err)
	assert.Zero(t, eff)
}

func TestEffectiveCapacity_PredictionFailureDegradesToRaw(t *testing.T) {
	preds := stubPredictions{err: errors.New("cache down")}
	adv := New(preds, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(100))

	require.NoError(t, err, "forecast failures must not block admissions")
	assert.Equal(t, uint32(100), eff)
}

func TestEffectiveCapacity_ZeroConfidenceUnknownGivesRaw(t *testing.T) {
	preds := stubPredictions{result: model.PredictionResult{Source: model.PredictionUnknown}}
	adv := New(preds, stubSnapshots{}, nil, testAdvisorConfig())

	eff, err := adv.EffectiveCapacity(context.Background(), slotWithCapacity(100))

	require.NoError(t, err)
	assert.Equal(t, uint32(100), eff)
}

func TestIsOverCapacityRisk_AboveHighWaterMark(t *testing.T) {
	notifier := &riskRecorder{}
	snaps := stubSnapshots{snap: &model.CrowdSnapshot{
		ZoneID:    "gate",
		Footfall:  95,
		Capacity:  100,
		Timestamp: time.Date(2026, 8, 26, 10, 15, 0, 0, time.UTC),
	}}
	adv := New(stubPredictions{}, snaps, notifier, testAdvisorConfig())

	atRisk, err := adv.IsOverCapacityRisk(context.Background(), "gate")

	require.NoError(t, err)
	assert.True(t, atRisk)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "gate", notifier.events[0].ZoneID)
	assert.Equal(t, string(model.CrowdHigh), notifier.events[0].Level)
	assert.InDelta(t, 0.95, notifier.events[0].Ratio, 1e-9)
}

func TestIsOverCapacityRisk_AtOrBelowHighWaterMarkIsSafe(t *testing.T) {
	notifier := &riskRecorder{}
	snaps := stubSnapshots{snap: &model.CrowdSnapshot{ZoneID: "gate", Footfall: 90, Capacity: 100}}
	adv := New(stubPredictions{}, snaps, notifier, testAdvisorConfig())

	atRisk, err := adv.IsOverCapacityRisk(context.Background(), "gate")

	require.NoError(t, err)
	assert.False(t, atRisk)
	assert.Empty(t, notifier.events)
}

func TestIsOverCapacityRisk_NoObservations(t *testing.T) {
	adv := New(stubPredictions{}, stubSnapshots{snap: nil}, nil, testAdvisorConfig())

	atRisk, err := adv.IsOverCapacityRisk(context.Background(), "exit")

	require.NoError(t, err)
	assert.False(t, atRisk)
}

func TestIsOverCapacityRisk_PublishFailureStillReportsRisk(t *testing.T) {
	notifier := &riskRecorder{err: errors.New("broker down")}
	snaps := stubSnapshots{snap: &model.CrowdSnapshot{ZoneID: "gate", Footfall: 99, Capacity: 100}}
	adv := New(stubPredictions{}, snaps, notifier, testAdvisorConfig())

	atRisk, err := adv.IsOverCapacityRisk(context.Background(), "gate")

	require.NoError(t, err)
	assert.True(t, atRisk, "alerting is best effort; the risk verdict stands")
}

func TestIsOverCapacityRisk_SnapshotStoreError(t *testing.T) {
	adv := New(stubPredictions{}, stubSnapshots{err: errors.New("db down")}, nil, testAdvisorConfig())

	_, err := adv.IsOverCapacityRisk(context.Background(), "gate")
	assert.Error(t, err)
}
