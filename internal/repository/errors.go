// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// admission engine and HTTP handlers to distinguish between different
// failure scenarios with errors.Is. Capacity errors are expected and
// user-facing: the caller should pick another slot rather than retry,
// because retrying does not create capacity. State-conflict errors are
// idempotency guards and are safe to treat as no-ops.
package repository

import "errors"

// ErrSlotNotFound is returned when the referenced slot id is unknown.
var ErrSlotNotFound = errors.New("slot not found")

// ErrSlotInactive is returned when a booking targets a slot whose
// is_active flag is false.
var ErrSlotInactive = errors.New("slot inactive")

// ErrCapacityExceeded is returned when admitting the requested party
// would push the booked count past the admission ceiling. The slot is
// left untouched.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrReservationNotFound is returned when no reservation matches the
// given id or QR code.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrAlreadyCheckedIn is returned when a QR code is presented a second
// time. The first check-in stands; attendance is never double-counted.
var ErrAlreadyCheckedIn = errors.New("already checked in")

// ErrAlreadyCancelled is returned when cancelling a reservation that is
// already cancelled. Counters are not touched again.
var ErrAlreadyCancelled = errors.New("already cancelled")

// ErrReservationCancelled is returned when a cancelled reservation's QR
// code is presented at the gate.
var ErrReservationCancelled = errors.New("reservation cancelled")

// ErrAlertNotFound is returned when no SOS alert matches the given
// reference.
var ErrAlertNotFound = errors.New("alert not found")

// ErrInvalidTransition is returned when an SOS alert status change
// would move backwards (e.g. acknowledging a resolved alert).
var ErrInvalidTransition = errors.New("invalid status transition")
