package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// CrowdRepo persists observed footfall snapshots and the aggregated
// peak-hour patterns derived from them. Snapshots are append-only raw
// observations; patterns are the durable aggregate the prediction cache
// degrades to. Everything here tolerates eventual consistency: stale
// reads are acceptable, unlike slot counters.
type CrowdRepo struct {
	db *sql.DB
}

// NewCrowdRepo returns a new CrowdRepo bound to the given database.
func NewCrowdRepo(db *sql.DB) *CrowdRepo { return &CrowdRepo{db: db} }

// InsertSnapshot records one footfall observation. DayOfWeek and
// HourOfDay are derived from the timestamp here so every row carries
// consistent grouping columns regardless of who reported it.
func (r *CrowdRepo) InsertSnapshot(ctx context.Context, snap *model.CrowdSnapshot) error {
	ts := snap.Timestamp.UTC()
	snap.DayOfWeek = int(ts.Weekday())
	snap.HourOfDay = ts.Hour()
	const q = `INSERT INTO crowd_snapshots (zone_id, footfall, capacity, observed_at, day_of_week, hour_of_day)
	           VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		snap.ZoneID, snap.Footfall, snap.Capacity,
		ts.Format("2006-01-02 15:04:05"), snap.DayOfWeek, snap.HourOfDay,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	snap.ID = uint64(id)
	return nil
}

// LatestSnapshot returns the most recent observation for a zone.
// Absence of data is reported as (nil, nil): a zone with no
// observations is not an error for the advisor, it just means no risk
// signal can be derived.
func (r *CrowdRepo) LatestSnapshot(ctx context.Context, zoneID string) (*model.CrowdSnapshot, error) {
	const q = `SELECT id, zone_id, footfall, capacity, observed_at, day_of_week, hour_of_day
	           FROM crowd_snapshots
	           WHERE zone_id = ?
	           ORDER BY observed_at DESC
	           LIMIT 1`
	var s model.CrowdSnapshot
	err := r.db.QueryRowContext(ctx, q, zoneID).Scan(
		&s.ID, &s.ZoneID, &s.Footfall, &s.Capacity, &s.Timestamp, &s.DayOfWeek, &s.HourOfDay,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertPattern writes an aggregated peak-hour pattern, overwriting the
// existing row for the same (zone_id, day_of_week, start_hour) key.
// The unique key on those three columns makes the upsert idempotent.
func (r *CrowdRepo) UpsertPattern(ctx context.Context, p *model.PeakHourPattern) error {
	const q = `INSERT INTO peak_hour_patterns (zone_id, day_of_week, start_hour, end_hour, avg_footfall, confidence, sample_count)
	           VALUES (?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	               end_hour = VALUES(end_hour),
	               avg_footfall = VALUES(avg_footfall),
	               confidence = VALUES(confidence),
	               sample_count = VALUES(sample_count)`
	_, err := r.db.ExecContext(ctx, q,
		p.ZoneID, p.DayOfWeek, p.StartHour, p.EndHour, p.AvgFootfall, p.Confidence, p.SampleCount,
	)
	return err
}

// MatchPattern finds the pattern covering the given weekday and hour
// for a zone. Absence is reported as (nil, nil): having no historical
// pattern for an hour is a normal degraded-prediction case, not a
// failure.
func (r *CrowdRepo) MatchPattern(ctx context.Context, zoneID string, dayOfWeek, hour int) (*model.PeakHourPattern, error) {
	const q = `SELECT id, zone_id, day_of_week, start_hour, end_hour, avg_footfall, confidence, sample_count, updated_at
	           FROM peak_hour_patterns
	           WHERE zone_id = ? AND day_of_week = ? AND start_hour <= ? AND end_hour > ?
	           ORDER BY start_hour DESC
	           LIMIT 1`
	var p model.PeakHourPattern
	err := r.db.QueryRowContext(ctx, q, zoneID, dayOfWeek, hour, hour).Scan(
		&p.ID, &p.ZoneID, &p.DayOfWeek, &p.StartHour, &p.EndHour,
		&p.AvgFootfall, &p.Confidence, &p.SampleCount, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AggregateSnapshots groups all snapshots of a zone inside the lookback
// window by (day_of_week, hour_of_day) and returns one pattern per
// group. Confidence is based on the sample count: n/(n+k) approaches 1
// as evidence accumulates, so single-observation hours stay close to
// zero and never dominate the advisor's policy. The computed patterns
// are returned, not persisted; the aggregation job decides what to
// upsert.
func (r *CrowdRepo) AggregateSnapshots(ctx context.Context, zoneID string, since time.Time) ([]model.PeakHourPattern, error) {
	const k = 10.0 // half-confidence sample count
	const q = `SELECT day_of_week, hour_of_day, AVG(footfall), COUNT(*)
	           FROM crowd_snapshots
	           WHERE zone_id = ? AND observed_at >= ?
	           GROUP BY day_of_week, hour_of_day
	           ORDER BY day_of_week, hour_of_day`
	rows, err := r.db.QueryContext(ctx, q, zoneID, since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	patterns := make([]model.PeakHourPattern, 0)
	for rows.Next() {
		var p model.PeakHourPattern
		var samples uint32
		if err := rows.Scan(&p.DayOfWeek, &p.StartHour, &p.AvgFootfall, &samples); err != nil {
			return nil, err
		}
		p.ZoneID = zoneID
		p.EndHour = p.StartHour + 1
		p.SampleCount = samples
		p.Confidence = float64(samples) / (float64(samples) + k)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}
