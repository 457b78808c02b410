package model

import "time"

// SOS alert status values.  Transitions only move forward:
// OPEN -> ACKNOWLEDGED -> RESOLVED.
const (
	SosOpen         = "OPEN"
	SosAcknowledged = "ACKNOWLEDGED"
	SosResolved     = "RESOLVED"
)

// SosAlert is a reported emergency, optionally linked to the user who
// raised it.  Location is either a lat/lon pair captured from the
// reporting device or a manual free-text description when coordinates
// are unavailable.  Reference is an opaque UUID handed back to the
// reporter for follow-up.
type SosAlert struct {
	ID             uint64     // sos_alerts.id
	Reference      string     // sos_alerts.reference (uuid, unique)
	UserID         uint64     // sos_alerts.user_id, zero when anonymous
	EmergencyType  string     // sos_alerts.emergency_type
	Latitude       *float64   // sos_alerts.latitude (nullable)
	Longitude      *float64   // sos_alerts.longitude (nullable)
	ManualLocation string     // sos_alerts.manual_location
	Status         string     // sos_alerts.status
	ResolvedAt     *time.Time // sos_alerts.resolved_at (nullable)
	ResolvedBy     uint64     // sos_alerts.resolved_by, zero until resolved
	CreatedAt      time.Time  // sos_alerts.created_at
	UpdatedAt      time.Time  // sos_alerts.updated_at
}
