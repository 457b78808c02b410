package model

import "time"

// Slot is a fixed-capacity admission window for a temple zone.  The
// BookedCount column is the single source of truth for how much of the
// capacity is taken; it only moves through the conditional UPDATE in the
// slot repository, never through read-modify-write in Go, so concurrent
// bookings can never push it past the ceiling.
//
// Fields:
//  ID          – primary key identifier.
//  ZoneID      – temple zone the slot admits into (gate, hall, exit, ...).
//  Date        – calendar day the slot belongs to.
//  StartTime   – start of the admission window.
//  EndTime     – end of the admission window.
//  Capacity    – raw maximum number of visitors.
//  BookedCount – visitors currently admitted, 0..Capacity.
//  IsActive    – inactive slots refuse new bookings but keep history.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Slot struct {
	ID          uint64    // slots.id
	ZoneID      string    // slots.zone_id
	Date        time.Time // slots.slot_date
	StartTime   time.Time // slots.start_time
	EndTime     time.Time // slots.end_time
	Capacity    uint32    // slots.capacity
	BookedCount uint32    // slots.booked_count
	IsActive    bool      // slots.is_active
	CreatedAt   time.Time // slots.created_at
	UpdatedAt   time.Time // slots.updated_at
}

// CapacitySnapshot is the point-in-time occupancy of a slot, read for
// display.  It is advisory: a booking decided on a snapshot can still be
// refused by the atomic reserve if the counter moved in between.
type CapacitySnapshot struct {
	Capacity    uint32 `json:"capacity"`
	BookedCount uint32 `json:"booked_count"`
	IsActive    bool   `json:"is_active"`
}

// Remaining returns how many visitors still fit.  Never negative even if
// the counter briefly overshoots during a manual correction.
func (s CapacitySnapshot) Remaining() uint32 {
	if s.BookedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.BookedCount
}
