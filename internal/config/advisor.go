package config

import (
	"os"
	"strconv"
	"time"
)

// AdvisorConfig carries the tunables of the capacity advisor's linear
// crowd-risk policy and of the background aggregation job.  The
// thresholds are global, not per zone; making them per-zone is a
// product decision that has not been taken.
//
//  HighWaterMark       – predicted occupancy ratio above which the
//                        policy starts reducing effective capacity.
//  ConfidenceThreshold – minimum forecast confidence for the reduction
//                        to apply; low-confidence forecasts never
//                        shrink capacity.
//  ReductionSlope      – how aggressively capacity shrinks per unit of
//                        occupancy ratio above the high-water mark.
//  MinCapacityFraction – floor on the reduction; effective capacity
//                        never drops below this fraction of raw.
//  PredictionTTL       – lifetime of cache entries written by the
//                        aggregation job.
//  AggregationInterval – period of the background aggregation loop.
//  AggregationWindow   – how far back snapshots are aggregated.
type AdvisorConfig struct {
	HighWaterMark       float64
	ConfidenceThreshold float64
	ReductionSlope      float64
	MinCapacityFraction float64
	PredictionTTL       time.Duration
	AggregationInterval time.Duration
	AggregationWindow   time.Duration
}

// LoadAdvisorConfig reads the advisor tunables from the environment,
// falling back to conservative defaults when unset.  Values outside
// sensible ranges are clamped rather than rejected so a bad deploy
// degrades to the defaults instead of refusing to start.
func LoadAdvisorConfig() AdvisorConfig {
	cfg := AdvisorConfig{
		HighWaterMark:       envFloat("ADVISOR_HIGH_WATER_MARK", 0.9),
		ConfidenceThreshold: envFloat("ADVISOR_CONFIDENCE_THRESHOLD", 0.6),
		ReductionSlope:      envFloat("ADVISOR_REDUCTION_SLOPE", 0.5),
		MinCapacityFraction: envFloat("ADVISOR_MIN_CAPACITY_FRACTION", 0.3),
		PredictionTTL:       envDur("PREDICTION_TTL", 30*time.Minute),
		AggregationInterval: envDur("AGGREGATION_INTERVAL", 15*time.Minute),
		AggregationWindow:   envDur("AGGREGATION_WINDOW", 28*24*time.Hour),
	}
	cfg.HighWaterMark = clamp01(cfg.HighWaterMark)
	cfg.ConfidenceThreshold = clamp01(cfg.ConfidenceThreshold)
	cfg.MinCapacityFraction = clamp01(cfg.MinCapacityFraction)
	if cfg.ReductionSlope < 0 {
		cfg.ReductionSlope = 0
	}
	if cfg.PredictionTTL <= 0 {
		cfg.PredictionTTL = 30 * time.Minute
	}
	if cfg.AggregationInterval <= 0 {
		cfg.AggregationInterval = 15 * time.Minute
	}
	if cfg.AggregationWindow <= 0 {
		cfg.AggregationWindow = 28 * 24 * time.Hour
	}
	return cfg
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
