package model

import "time"

// PredictionSource identifies how a prediction result was produced.
// Callers that only need a number can ignore it; the capacity advisor
// uses it to distinguish a fresh forecast from a degraded answer.
type PredictionSource string

const (
	// PredictionFresh means the value came from a live cache entry.
	PredictionFresh PredictionSource = "FRESH"
	// PredictionFallback means the cache missed (or the entry had
	// expired) and the value was derived from a PeakHourPattern.
	PredictionFallback PredictionSource = "FALLBACK"
	// PredictionUnknown means neither a cache entry nor a pattern
	// exists; the value is zero and the confidence is zero.
	PredictionUnknown PredictionSource = "UNKNOWN"
)

// PredictionCacheEntry is an ephemeral forecast for a (zone, hour
// bucket) pair.  Entries are purely derivative: losing one never loses
// data, only freshness, because PeakHourPattern is the durable source
// they are generated from.  An entry whose ExpiresAt has passed is
// treated as absent on read.
type PredictionCacheEntry struct {
	ZoneID         string    `json:"zone_id"`
	PredictedTime  time.Time `json:"predicted_time"` // start of the hour bucket
	PredictedValue uint32    `json:"predicted_value"`
	Confidence     float64   `json:"confidence"` // clamped to [0,1] on write
	GeneratedAt    time.Time `json:"generated_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// PredictionResult is the best-effort answer returned by the prediction
// cache.  It never represents an error: a total miss is reported as a
// zero-confidence PredictionUnknown result rather than a failure.
type PredictionResult struct {
	ZoneID         string           `json:"zone_id"`
	PredictedTime  time.Time        `json:"predicted_time"`
	PredictedValue uint32           `json:"predicted_value"`
	Confidence     float64          `json:"confidence"`
	Source         PredictionSource `json:"source"`
}
