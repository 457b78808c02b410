// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when an admission is successfully
// booked. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database.
type BookingConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	SlotID        uint64 `json:"slot_id"`
	ZoneID        string `json:"zone_id"`
	UserID        uint64 `json:"user_id"`
	PartySize     uint32 `json:"party_size"`
	SlotStartsAt  string `json:"slot_starts_at"`
	SlotEndsAt    string `json:"slot_ends_at"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// CrowdRiskEvent is published when a zone's observed footfall crosses
// the high-water mark. It is a proactive signal for operators, distinct
// from a visitor-initiated SOS alert.
type CrowdRiskEvent struct {
	ZoneID     string  `json:"zone_id"`
	Footfall   uint32  `json:"footfall"`
	Capacity   uint32  `json:"capacity"`
	Ratio      float64 `json:"ratio"`
	Level      string  `json:"level"`
	ObservedAt string  `json:"observed_at"`
}

// SosAlertEvent is published when an SOS alert is created or resolved.
// Delivery to responders is the notification service's concern; this
// payload only announces the state change.
type SosAlertEvent struct {
	Reference     string   `json:"reference"`
	EmergencyType string   `json:"emergency_type"`
	Status        string   `json:"status"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Location      string   `json:"location,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}
