package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/repository"
)

// SlotHandler exposes slot browsing to visitors and schedule
// generation to administrators.
type SlotHandler struct {
	Slots *repository.SlotRepo
}

// NewSlotHandler constructs a SlotHandler.
func NewSlotHandler(slots *repository.SlotRepo) *SlotHandler {
	if slots == nil {
		panic("nil repository passed to NewSlotHandler")
	}
	return &SlotHandler{Slots: slots}
}

// slotView is the JSON shape slots are rendered as for browsing.
type slotView struct {
	ID        uint64 `json:"id"`
	ZoneID    string `json:"zone_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Capacity  uint32 `json:"capacity"`
	Booked    uint32 `json:"booked_count"`
	Remaining uint32 `json:"remaining"`
}

// ListByDate handles GET /v1/slots?date=YYYY-MM-DD and returns the
// active slots of that day. Counters in the response are display-only
// snapshots; availability is decided at booking time.
func (h *SlotHandler) ListByDate(c echo.Context) error {
	dateStr := c.QueryParam("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	slots, err := h.Slots.ListByDate(c.Request().Context(), date)
	if err != nil {
		return respondError(c, err)
	}
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		remaining := uint32(0)
		if s.Capacity > s.BookedCount {
			remaining = s.Capacity - s.BookedCount
		}
		views = append(views, slotView{
			ID:        s.ID,
			ZoneID:    s.ZoneID,
			Date:      s.Date.UTC().Format("2006-01-02"),
			StartTime: s.StartTime.UTC().Format(time.RFC3339),
			EndTime:   s.EndTime.UTC().Format(time.RFC3339),
			Capacity:  s.Capacity,
			Booked:    s.BookedCount,
			Remaining: remaining,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": views})
}

// Capacity handles GET /v1/slots/:id/capacity and returns the slot's
// capacity snapshot for display.
func (h *SlotHandler) Capacity(c echo.Context) error {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	snap, err := h.Slots.GetCapacitySnapshot(c.Request().Context(), slotID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"capacity":     snap.Capacity,
		"booked_count": snap.BookedCount,
		"remaining":    snap.Remaining(),
		"is_active":    snap.IsActive,
	})
}

// CreateBulk handles POST /v1/admin/slots. The body carries a list of
// slot definitions generated by the scheduling tool; booked counts
// always start at zero.
func (h *SlotHandler) CreateBulk(c echo.Context) error {
	var body struct {
		Slots []struct {
			ZoneID    string `json:"zone_id"`
			Date      string `json:"date"`
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Capacity  uint32 `json:"capacity"`
		} `json:"slots"`
	}
	if err := c.Bind(&body); err != nil || len(body.Slots) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "slots is required"})
	}
	slots := make([]model.Slot, 0, len(body.Slots))
	for i, in := range body.Slots {
		date, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date", "index": i})
		}
		start, err := time.Parse(time.RFC3339, in.StartTime)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_time", "index": i})
		}
		end, err := time.Parse(time.RFC3339, in.EndTime)
		if err != nil || !end.After(start) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_time", "index": i})
		}
		if in.ZoneID == "" || in.Capacity == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "zone_id and capacity are required", "index": i})
		}
		slots = append(slots, model.Slot{
			ZoneID:    in.ZoneID,
			Date:      date,
			StartTime: start,
			EndTime:   end,
			Capacity:  in.Capacity,
			IsActive:  true,
		})
	}
	if err := h.Slots.CreateBulk(c.Request().Context(), slots); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": len(slots)})
}

// Deactivate handles POST /v1/admin/slots/:id/deactivate. The slot
// stops admitting new bookings; existing reservations stand.
func (h *SlotHandler) Deactivate(c echo.Context) error {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || slotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
	}
	if err := h.Slots.Deactivate(c.Request().Context(), slotID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
