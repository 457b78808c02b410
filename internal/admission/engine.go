// Package admission orchestrates the booking workflow: validating the
// request, consulting the capacity advisor for the effective ceiling,
// reserving capacity atomically in the slot store, issuing a QR-coded
// reservation and driving its check-in state machine.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/temple-slot-admission/internal/clock"
	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/queue"
)

// ErrInvalidPartySize is returned when a booking requests fewer than
// one visitor.
var ErrInvalidPartySize = errors.New("party size must be at least 1")

// SlotStore is the capacity-counter surface the engine books against.
// TryReserve must be linearizable per slot: the capacity check and the
// increment are observed as a single atomic unit by all concurrent
// callers. Implemented by repository.SlotRepo.
type SlotStore interface {
	GetByID(ctx context.Context, slotID uint64) (*model.Slot, error)
	TryReserve(ctx context.Context, slotID uint64, partySize uint32, ceiling uint32) error
	Release(ctx context.Context, slotID uint64, partySize uint32) error
}

// ReservationStore persists reservation records and their state
// machine. Implemented by repository.ReservationRepo.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation, sign func(reservationID uint64) string) error
	GetByQRCode(ctx context.Context, code string) (*model.Reservation, error)
	CheckIn(ctx context.Context, qrCode string, at time.Time) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID uint64) (slotID uint64, partySize uint32, err error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// CapacityAdvisor supplies the admission ceiling, which may be lower
// than the slot's raw capacity under high predicted crowd.
type CapacityAdvisor interface {
	EffectiveCapacity(ctx context.Context, slot *model.Slot) (uint32, error)
}

// Notifier receives booking confirmations. May be nil when no broker
// is configured; publishing is best effort either way.
type Notifier interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// BookingRequest carries the validated inputs of a booking attempt.
// UserID is the already-authenticated principal (zero for guests);
// credential verification happens upstream.
type BookingRequest struct {
	SlotID    uint64
	PartySize uint32
	UserID    uint64
	Contact   string
}

// Engine is the admission engine. It is safe for concurrent use: it
// holds no mutable state of its own, and the only operation requiring
// mutual exclusion, the capacity check-and-increment, is delegated to
// the slot store's atomic TryReserve.
type Engine struct {
	slots        SlotStore
	reservations ReservationStore
	advisor      CapacityAdvisor
	notifier     Notifier
	clk          clock.Clock
	qr           *QRSigner
}

// NewEngine constructs an Engine. notifier may be nil.
func NewEngine(slots SlotStore, reservations ReservationStore, advisor CapacityAdvisor, notifier Notifier, clk clock.Clock, qrSecret string) *Engine {
	if slots == nil || reservations == nil || advisor == nil || clk == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{
		slots:        slots,
		reservations: reservations,
		advisor:      advisor,
		notifier:     notifier,
		clk:          clk,
		qr:           NewQRSigner(qrSecret),
	}
}

// BookSlot runs the full booking workflow. The steps before TryReserve
// have no side effects, so a request that fails or times out up to that
// point leaves no trace. Once TryReserve has succeeded, the reservation
// insert either commits or the reserved capacity is compensated with a
// Release; the increment is never left dangling behind a failed record
// write.
func (e *Engine) BookSlot(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	if req.PartySize < 1 {
		return nil, ErrInvalidPartySize
	}
	slot, err := e.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	ceiling, err := e.advisor.EffectiveCapacity(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("effective capacity for slot %d: %w", req.SlotID, err)
	}
	if err := e.slots.TryReserve(ctx, req.SlotID, req.PartySize, ceiling); err != nil {
		return nil, err
	}
	res := &model.Reservation{
		SlotID:    req.SlotID,
		UserID:    req.UserID,
		PartySize: req.PartySize,
		Contact:   req.Contact,
		Status:    model.ReservationConfirmed,
	}
	if err := e.reservations.Create(ctx, res, func(reservationID uint64) string {
		return e.qr.Sign(req.SlotID, reservationID)
	}); err != nil {
		// Compensating release: the counter increment committed but the
		// reservation record did not. Without this the capacity would be
		// lost to a phantom booking.
		if relErr := e.slots.Release(ctx, req.SlotID, req.PartySize); relErr != nil {
			log.Printf("admission: compensating release for slot %d failed: %v", req.SlotID, relErr)
		}
		return nil, fmt.Errorf("persist reservation: %w", err)
	}
	if e.notifier != nil {
		event := queue.BookingConfirmedEvent{
			ReservationID: res.ID,
			SlotID:        slot.ID,
			ZoneID:        slot.ZoneID,
			UserID:        req.UserID,
			PartySize:     req.PartySize,
			SlotStartsAt:  slot.StartTime.UTC().Format(time.RFC3339),
			SlotEndsAt:    slot.EndTime.UTC().Format(time.RFC3339),
			ConfirmedAt:   e.clk.Now().Format(time.RFC3339),
		}
		if err := e.notifier.PublishBookingConfirmed(ctx, event); err != nil {
			log.Printf("admission: booking event publish failed: %v", err)
		}
	}
	return res, nil
}

// CheckIn marks the reservation behind a QR code as attended, exactly
// once. The second presentation of the same code returns
// ErrAlreadyCheckedIn and does not move checked_in_at.
func (e *Engine) CheckIn(ctx context.Context, qrCode string) (*model.Reservation, error) {
	return e.reservations.CheckIn(ctx, qrCode, e.clk.Now())
}

// Cancel aborts a confirmed reservation and releases its capacity back
// to the slot. Repeated cancels are logical no-ops surfacing
// ErrAlreadyCancelled; they never decrement the counter twice.
func (e *Engine) Cancel(ctx context.Context, reservationID uint64) error {
	slotID, partySize, err := e.reservations.Cancel(ctx, reservationID)
	if err != nil {
		return err
	}
	if err := e.slots.Release(ctx, slotID, partySize); err != nil {
		return fmt.Errorf("release slot %d: %w", slotID, err)
	}
	return nil
}

// ListReservations returns the caller's reservations, newest first.
func (e *Engine) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return e.reservations.ListByUser(ctx, userID)
}
