package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/temple-slot-admission/internal/admission"
	"github.com/iliyamo/temple-slot-admission/internal/middleware"
	"github.com/iliyamo/temple-slot-admission/internal/model"
)

// AdmissionService is the slice of the admission engine the booking
// handler needs. Declared here so the handler can be exercised against
// a mock in tests.
type AdmissionService interface {
	BookSlot(ctx context.Context, req admission.BookingRequest) (*model.Reservation, error)
	CheckIn(ctx context.Context, qrCode string) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID uint64) error
	ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// BookingHandler exposes the booking workflow over HTTP. Identity has
// already been resolved by the JWT middleware; anonymous bookings are
// allowed and carry a zero user id.
type BookingHandler struct {
	Engine AdmissionService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(engine AdmissionService) *BookingHandler {
	if engine == nil {
		panic("nil engine passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine}
}

// reservationView is the JSON shape reservations are rendered as.
type reservationView struct {
	ID          uint64  `json:"id"`
	SlotID      uint64  `json:"slot_id"`
	PartySize   uint32  `json:"party_size"`
	QRCode      string  `json:"qr_code"`
	Status      string  `json:"status"`
	CheckedInAt *string `json:"checked_in_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func viewOf(r *model.Reservation) reservationView {
	v := reservationView{
		ID:        r.ID,
		SlotID:    r.SlotID,
		PartySize: r.PartySize,
		QRCode:    r.QRCode,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.CheckedInAt != nil {
		iso := r.CheckedInAt.UTC().Format(time.RFC3339)
		v.CheckedInAt = &iso
	}
	return v
}

// Book handles POST /v1/slots/:id/book. The body carries the party
// size and a contact detail. On success it returns 201 Created with
// the reservation including its QR code. Capacity refusals come back
// as 409 with a stable code so the client can offer another slot.
func (h *BookingHandler) Book(c echo.Context) error {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	var body struct {
		PartySize uint32 `json:"party_size"`
		Contact   string `json:"contact"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Engine.BookSlot(c.Request().Context(), admission.BookingRequest{
		SlotID:    slotID,
		PartySize: body.PartySize,
		UserID:    middleware.UserID(c),
		Contact:   body.Contact,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, viewOf(res))
}

// CheckIn handles POST /v1/checkin. Gate staff scan the visitor's QR
// code; the first scan flips the reservation to CHECKED_IN, repeated
// scans get ALREADY_CHECKED_IN and never double-count attendance.
func (h *BookingHandler) CheckIn(c echo.Context) error {
	var body struct {
		QRCode string `json:"qr_code"`
	}
	if err := c.Bind(&body); err != nil || body.QRCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "qr_code is required"})
	}
	res, err := h.Engine.CheckIn(c.Request().Context(), body.QRCode)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(res))
}

// Cancel handles DELETE /v1/reservations/:id. A second cancel of the
// same reservation returns ALREADY_CANCELLED and leaves the slot
// counters untouched.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Engine.Cancel(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /v1/reservations and returns the caller's
// reservations, newest first. Requires an authenticated principal.
func (h *BookingHandler) List(c echo.Context) error {
	userID := middleware.UserID(c)
	if userID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservations, err := h.Engine.ListReservations(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]reservationView, 0, len(reservations))
	for i := range reservations {
		views = append(views, viewOf(&reservations[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": views})
}
