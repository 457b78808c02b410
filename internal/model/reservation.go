package model

import "time"

// Reservation status values.  The state machine only moves forward:
// CONFIRMED -> CHECKED_IN (terminal success) or CONFIRMED -> CANCELLED
// (terminal abort).  No transition leaves a terminal state.
const (
	ReservationConfirmed = "CONFIRMED"
	ReservationCheckedIn = "CHECKED_IN"
	ReservationCancelled = "CANCELLED"
)

// Reservation records a confirmed admission of a party into a Slot.
// The QR code is content-addressed (an HMAC over the slot and
// reservation identifiers) so that a code cannot be forged for a
// reservation that was never issued.  Reservations are retained
// indefinitely for audit; cancellation flips the status rather than
// deleting the row.
//
// Fields:
//  ID          – primary key identifier.
//  SlotID      – slot being admitted into (referenced, not owned).
//  UserID      – authenticated principal who booked, zero for guests.
//  PartySize   – number of people admitted under this reservation.
//  Contact     – contact detail supplied with the booking.
//  QRCode      – unique admission token presented at the gate.
//  Status      – CONFIRMED, CHECKED_IN or CANCELLED.
//  CheckedInAt – set exactly once, on the first successful check-in.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
	ID          uint64     // reservations.id
	SlotID      uint64     // reservations.slot_id
	UserID      uint64     // reservations.user_id
	PartySize   uint32     // reservations.party_size
	Contact     string     // reservations.contact
	QRCode      string     // reservations.qr_code
	Status      string     // reservations.status
	CheckedInAt *time.Time // reservations.checked_in_at (nullable)
	CreatedAt   time.Time  // reservations.created_at
	UpdatedAt   time.Time  // reservations.updated_at
}
