package model

import "time"

// CrowdLevel buckets a zone's footfall relative to its capacity into a
// coarse status readable on a dashboard.  Thresholds follow the
// occupancy ratio rather than absolute counts so that small and large
// zones classify consistently.
type CrowdLevel string

const (
	CrowdLow      CrowdLevel = "LOW"
	CrowdModerate CrowdLevel = "MODERATE"
	CrowdHigh     CrowdLevel = "HIGH"
	CrowdUnknown  CrowdLevel = "UNKNOWN"
)

// ClassifyCrowd maps a footfall observation against a zone capacity to
// a CrowdLevel.  A non-positive capacity yields CrowdUnknown since no
// ratio can be formed.
func ClassifyCrowd(footfall uint32, capacity uint32) CrowdLevel {
	if capacity == 0 {
		return CrowdUnknown
	}
	ratio := float64(footfall) / float64(capacity)
	switch {
	case ratio < 0.5:
		return CrowdLow
	case ratio < 0.8:
		return CrowdModerate
	default:
		return CrowdHigh
	}
}

// CrowdSnapshot is an observed footfall count for a zone at a point in
// time.  Snapshots are append-only: the timestamp is immutable once
// recorded and rows are never updated.  DayOfWeek and HourOfDay are
// denormalized from Timestamp so the aggregation pass can group without
// date arithmetic in SQL.
type CrowdSnapshot struct {
	ID        uint64    // crowd_snapshots.id
	ZoneID    string    // crowd_snapshots.zone_id
	Footfall  uint32    // crowd_snapshots.footfall
	Capacity  uint32    // crowd_snapshots.capacity
	Timestamp time.Time // crowd_snapshots.observed_at
	DayOfWeek int       // crowd_snapshots.day_of_week (0=Sunday .. 6=Saturday)
	HourOfDay int       // crowd_snapshots.hour_of_day (0..23)
}

// PeakHourPattern is the durable, aggregated historical footfall for a
// zone over a recurring weekly hour range.  It is the source the
// prediction cache degrades to when no fresh forecast exists.  Exactly
// one pattern exists per (ZoneID, DayOfWeek, StartHour); the
// aggregation pass recomputes AvgFootfall and Confidence in place.
type PeakHourPattern struct {
	ID          uint64    // peak_hour_patterns.id
	ZoneID      string    // peak_hour_patterns.zone_id
	DayOfWeek   int       // peak_hour_patterns.day_of_week
	StartHour   int       // peak_hour_patterns.start_hour
	EndHour     int       // peak_hour_patterns.end_hour
	AvgFootfall float64   // peak_hour_patterns.avg_footfall
	Confidence  float64   // peak_hour_patterns.confidence, in [0,1]
	SampleCount uint32    // peak_hour_patterns.sample_count
	UpdatedAt   time.Time // peak_hour_patterns.updated_at
}
