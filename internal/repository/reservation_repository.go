package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// ReservationRepo provides persistence for reservations. A reservation
// references its slot but does not own the slot's counters; capacity
// accounting stays in SlotRepo. All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Create inserts a reservation and stamps its QR code in a single
// transaction. The QR code is derived from the generated reservation
// id, so the insert has to happen first; the sign callback receives the
// new id and returns the code to store. Committing both writes
// together means a reservation is never observable without its code.
// On any error the transaction is rolled back and the caller must
// compensate the slot counter it reserved beforehand.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation, sign func(reservationID uint64) string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const ins = `INSERT INTO reservations (slot_id, user_id, party_size, contact, qr_code, status) VALUES (?, ?, ?, ?, '', ?)`
	result, err := tx.ExecContext(ctx, ins, res.SlotID, res.UserID, res.PartySize, res.Contact, res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.QRCode = sign(res.ID)
	if _, err := tx.ExecContext(ctx, `UPDATE reservations SET qr_code = ? WHERE id = ?`, res.QRCode, res.ID); err != nil {
		return err
	}
	// Query back the row to populate timestamps and defaults.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads a reservation by primary key. Returns
// ErrReservationNotFound when the id is unknown.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByQRCode loads a reservation by its unique QR code. Returns
// ErrReservationNotFound when no reservation carries the code.
func (r *ReservationRepo) GetByQRCode(ctx context.Context, code string) (*model.Reservation, error) {
	return r.getOne(ctx, `WHERE qr_code = ?`, code)
}

func (r *ReservationRepo) getOne(ctx context.Context, where string, arg interface{}) (*model.Reservation, error) {
	q := `SELECT id, slot_id, user_id, party_size, contact, qr_code, status, checked_in_at, created_at, updated_at
	      FROM reservations ` + where
	var res model.Reservation
	var checkedIn sql.NullTime
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&res.ID, &res.SlotID, &res.UserID, &res.PartySize, &res.Contact,
		&res.QRCode, &res.Status, &checkedIn, &res.CreatedAt, &res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		res.CheckedInAt = &t
	}
	return &res, nil
}

// CheckIn transitions a reservation from CONFIRMED to CHECKED_IN and
// stamps checked_in_at with the supplied time, exactly once. The
// status precondition lives in the UPDATE itself so concurrent scans
// of the same code cannot both count attendance: only one statement
// can match the CONFIRMED row. When the guarded update misses, the
// current status is read to return the precise conflict error.
func (r *ReservationRepo) CheckIn(ctx context.Context, qrCode string, at time.Time) (*model.Reservation, error) {
	const q = `UPDATE reservations
	           SET status = ?, checked_in_at = ?
	           WHERE qr_code = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q,
		model.ReservationCheckedIn, at.UTC().Format("2006-01-02 15:04:05"),
		qrCode, model.ReservationConfirmed,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return r.GetByQRCode(ctx, qrCode)
	}
	existing, err := r.GetByQRCode(ctx, qrCode)
	if err != nil {
		return nil, err // includes ErrReservationNotFound
	}
	switch existing.Status {
	case model.ReservationCheckedIn:
		return nil, ErrAlreadyCheckedIn
	case model.ReservationCancelled:
		return nil, ErrReservationCancelled
	default:
		return nil, ErrReservationNotFound
	}
}

// Cancel transitions a reservation from CONFIRMED to CANCELLED and
// reports the slot id and party size so the caller can release the
// reserved capacity. Like CheckIn, the precondition is embedded in the
// UPDATE so repeated cancels are logical no-ops: the second call finds
// no CONFIRMED row and gets ErrAlreadyCancelled without the counters
// being touched twice.
func (r *ReservationRepo) Cancel(ctx context.Context, reservationID uint64) (slotID uint64, partySize uint32, err error) {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.ReservationCancelled, reservationID, model.ReservationConfirmed)
	if err != nil {
		return 0, 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, 0, err
	}
	existing, err := r.GetByID(ctx, reservationID)
	if err != nil {
		return 0, 0, err
	}
	if n == 0 {
		switch existing.Status {
		case model.ReservationCancelled:
			return 0, 0, ErrAlreadyCancelled
		case model.ReservationCheckedIn:
			return 0, 0, ErrAlreadyCheckedIn
		default:
			return 0, 0, ErrReservationNotFound
		}
	}
	return existing.SlotID, existing.PartySize, nil
}

// ListByUser returns all reservations made by the given user, newest
// first. When no reservations exist, an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT id, slot_id, user_id, party_size, contact, qr_code, status, checked_in_at, created_at, updated_at
	           FROM reservations
	           WHERE user_id = ?
	           ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		var checkedIn sql.NullTime
		if err := rows.Scan(
			&res.ID, &res.SlotID, &res.UserID, &res.PartySize, &res.Contact,
			&res.QRCode, &res.Status, &checkedIn, &res.CreatedAt, &res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if checkedIn.Valid {
			t := checkedIn.Time
			res.CheckedInAt = &t
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
