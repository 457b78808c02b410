package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// SlotRepo is the single source of truth for slot capacity counters.
// All mutation goes through TryReserve and Release, each of which is a
// single conditional UPDATE: the check and the increment happen as one
// atomic statement at the database, so no two concurrent callers can
// both succeed when only one has room. There is no check-then-act
// window to race through, and different slots never contend with each
// other.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo constructs a SlotRepo given a DB handle.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span repositories.
func (r *SlotRepo) DB() *sql.DB { return r.db }

// TryReserve atomically admits partySize visitors into the slot if
// doing so keeps booked_count within the given ceiling. The ceiling is
// supplied by the caller rather than read from the row because the
// admission engine books against the advisor's effective capacity,
// which may be lower than the raw capacity stored on the slot.
//
// On failure nothing is modified and one of ErrCapacityExceeded,
// ErrSlotInactive or ErrSlotNotFound is returned so the caller can
// report a specific, stable error code.
func (r *SlotRepo) TryReserve(ctx context.Context, slotID uint64, partySize uint32, ceiling uint32) error {
	const q = `UPDATE slots
	           SET booked_count = booked_count + ?
	           WHERE id = ? AND is_active = 1 AND booked_count + ? <= ?`
	res, err := r.db.ExecContext(ctx, q, partySize, slotID, partySize, ceiling)
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
	// The guarded update matched no row. Read the slot once to find out
	// why; this read is diagnostic only and does not reopen a race, the
	// reservation attempt has already definitively failed.
	slot, err := r.GetByID(ctx, slotID)
	if err != nil {
		return err
	}
	if !slot.IsActive {
		return ErrSlotInactive
	}
	return ErrCapacityExceeded
}

// Release atomically gives back partySize previously admitted visitors,
// used on cancellation. The decrement is clamped at zero inside the
// statement; booked_count never goes negative even if Release is called
// with a stale party size.
func (r *SlotRepo) Release(ctx context.Context, slotID uint64, partySize uint32) error {
	const q = `UPDATE slots
	           SET booked_count = CASE WHEN booked_count > ? THEN booked_count - ? ELSE 0 END
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, partySize, partySize, slotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows both for a missing slot and
		// for a no-op clamp at zero; distinguish with a lookup.
		if _, err := r.GetByID(ctx, slotID); err != nil {
			return err
		}
	}
	return nil
}

// GetCapacitySnapshot returns a read-only view of the slot's counters
// for display purposes. It is a plain read without the atomicity
// guarantee of TryReserve; the counters may move immediately after.
func (r *SlotRepo) GetCapacitySnapshot(ctx context.Context, slotID uint64) (*model.CapacitySnapshot, error) {
	const q = `SELECT capacity, booked_count, is_active FROM slots WHERE id = ?`
	var snap model.CapacitySnapshot
	err := r.db.QueryRowContext(ctx, q, slotID).Scan(&snap.Capacity, &snap.BookedCount, &snap.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// GetByID loads a full slot row. It returns ErrSlotNotFound when the
// id is unknown.
func (r *SlotRepo) GetByID(ctx context.Context, slotID uint64) (*model.Slot, error) {
	const q = `SELECT id, zone_id, slot_date, start_time, end_time, capacity, booked_count, is_active, created_at, updated_at
	           FROM slots WHERE id = ?`
	var s model.Slot
	var active int
	err := r.db.QueryRowContext(ctx, q, slotID).Scan(
		&s.ID, &s.ZoneID, &s.Date, &s.StartTime, &s.EndTime,
		&s.Capacity, &s.BookedCount, &active, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	s.IsActive = active == 1
	return &s, nil
}

// ListByDate returns all active slots on the given calendar date,
// ordered by start time. Used by the public browse endpoint.
func (r *SlotRepo) ListByDate(ctx context.Context, date time.Time) ([]model.Slot, error) {
	const q = `SELECT id, zone_id, slot_date, start_time, end_time, capacity, booked_count, is_active, created_at, updated_at
	           FROM slots
	           WHERE slot_date = ? AND is_active = 1
	           ORDER BY start_time, zone_id`
	rows, err := r.db.QueryContext(ctx, q, date.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.Slot, 0)
	for rows.Next() {
		var s model.Slot
		var active int
		if err := rows.Scan(
			&s.ID, &s.ZoneID, &s.Date, &s.StartTime, &s.EndTime,
			&s.Capacity, &s.BookedCount, &active, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		s.IsActive = active == 1
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// CreateBulk inserts multiple slot rows in one statement. It is used
// at schedule-generation time; booked_count always starts at zero and
// is never written directly afterwards. Passing an empty slice has no
// effect and returns nil.
func (r *SlotRepo) CreateBulk(ctx context.Context, slots []model.Slot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO slots (zone_id, slot_date, start_time, end_time, capacity, booked_count, is_active) VALUES `
	args := make([]interface{}, 0, len(slots)*7)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, 0, ?)"
		active := 0
		if s.IsActive {
			active = 1
		}
		args = append(args,
			s.ZoneID,
			s.Date.UTC().Format("2006-01-02"),
			s.StartTime.UTC().Format("2006-01-02 15:04:05"),
			s.EndTime.UTC().Format("2006-01-02 15:04:05"),
			s.Capacity,
			active,
		)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Deactivate flips a slot's is_active flag off so that no further
// bookings are admitted. Existing reservations are untouched; slots
// with active reservations are never deleted, only deactivated.
func (r *SlotRepo) Deactivate(ctx context.Context, slotID uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE slots SET is_active = 0 WHERE id = ?`, slotID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, slotID); err != nil {
			return err
		}
	}
	return nil
}
