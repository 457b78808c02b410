package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// SosRepo persists emergency alerts. Status transitions only move
// forward (OPEN -> ACKNOWLEDGED -> RESOLVED); the precondition is part
// of each UPDATE statement so concurrent operators cannot move an alert
// backwards or resolve it twice.
type SosRepo struct {
	db *sql.DB
}

// NewSosRepo returns a new SosRepo bound to the given database.
func NewSosRepo(db *sql.DB) *SosRepo { return &SosRepo{db: db} }

// Create records a new alert in the OPEN state and assigns it a UUID
// reference the reporter can quote when following up.
func (r *SosRepo) Create(ctx context.Context, alert *model.SosAlert) error {
	alert.Reference = uuid.NewString()
	alert.Status = model.SosOpen
	const q = `INSERT INTO sos_alerts (reference, user_id, emergency_type, latitude, longitude, manual_location, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		alert.Reference, alert.UserID, alert.EmergencyType,
		alert.Latitude, alert.Longitude, alert.ManualLocation, alert.Status,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	alert.ID = uint64(id)
	return nil
}

// GetByReference loads an alert by its UUID reference.
func (r *SosRepo) GetByReference(ctx context.Context, ref string) (*model.SosAlert, error) {
	const q = `SELECT id, reference, user_id, emergency_type, latitude, longitude, manual_location, status, resolved_at, resolved_by, created_at, updated_at
	           FROM sos_alerts WHERE reference = ?`
	var a model.SosAlert
	var lat, lon sql.NullFloat64
	var resolvedAt sql.NullTime
	var resolvedBy sql.NullInt64
	err := r.db.QueryRowContext(ctx, q, ref).Scan(
		&a.ID, &a.Reference, &a.UserID, &a.EmergencyType, &lat, &lon,
		&a.ManualLocation, &a.Status, &resolvedAt, &resolvedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	if lat.Valid {
		v := lat.Float64
		a.Latitude = &v
	}
	if lon.Valid {
		v := lon.Float64
		a.Longitude = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if resolvedBy.Valid {
		a.ResolvedBy = uint64(resolvedBy.Int64)
	}
	return &a, nil
}

// Acknowledge moves an OPEN alert to ACKNOWLEDGED. Acknowledging an
// alert that is already ACKNOWLEDGED or RESOLVED returns
// ErrInvalidTransition; an unknown reference returns ErrAlertNotFound.
func (r *SosRepo) Acknowledge(ctx context.Context, ref string) error {
	const q = `UPDATE sos_alerts SET status = ? WHERE reference = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.SosAcknowledged, ref, model.SosOpen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByReference(ctx, ref); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// Resolve moves an alert to RESOLVED, recording when and by whom. Both
// OPEN and ACKNOWLEDGED alerts may be resolved directly; resolving a
// resolved alert returns ErrInvalidTransition.
func (r *SosRepo) Resolve(ctx context.Context, ref string, resolvedBy uint64, at time.Time) error {
	const q = `UPDATE sos_alerts
	           SET status = ?, resolved_at = ?, resolved_by = ?
	           WHERE reference = ? AND status IN (?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		model.SosResolved, at.UTC().Format("2006-01-02 15:04:05"), resolvedBy,
		ref, model.SosOpen, model.SosAcknowledged,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByReference(ctx, ref); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// ListOpen returns all alerts not yet resolved, oldest first, for the
// operator dashboard.
func (r *SosRepo) ListOpen(ctx context.Context) ([]model.SosAlert, error) {
	const q = `SELECT id, reference, user_id, emergency_type, latitude, longitude, manual_location, status, resolved_at, resolved_by, created_at, updated_at
	           FROM sos_alerts
	           WHERE status IN (?, ?)
	           ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, model.SosOpen, model.SosAcknowledged)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := make([]model.SosAlert, 0)
	for rows.Next() {
		var a model.SosAlert
		var lat, lon sql.NullFloat64
		var resolvedAt sql.NullTime
		var resolvedBy sql.NullInt64
		if err := rows.Scan(
			&a.ID, &a.Reference, &a.UserID, &a.EmergencyType, &lat, &lon,
			&a.ManualLocation, &a.Status, &resolvedAt, &resolvedBy, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if lat.Valid {
			v := lat.Float64
			a.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			a.Longitude = &v
		}
		if resolvedAt.Valid {
			t := resolvedAt.Time
			a.ResolvedAt = &t
		}
		if resolvedBy.Valid {
			a.ResolvedBy = uint64(resolvedBy.Int64)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}
