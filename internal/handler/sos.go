package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/temple-slot-admission/internal/clock"
	"github.com/iliyamo/temple-slot-admission/internal/middleware"
	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/queue"
	"github.com/iliyamo/temple-slot-admission/internal/repository"
)

// SosNotifier receives alert lifecycle events. Implemented by
// queue.Publisher; may be nil when no broker is configured.
type SosNotifier interface {
	PublishSosAlert(ctx context.Context, event queue.SosAlertEvent) error
}

// SosHandler exposes the emergency-alert lifecycle. Creation is open to
// any visitor (authenticated or not); acknowledge and resolve sit on
// the admin routes.
type SosHandler struct {
	Repo     *repository.SosRepo
	Notifier SosNotifier
	Clock    clock.Clock
}

// NewSosHandler constructs a SosHandler. notifier may be nil.
func NewSosHandler(repo *repository.SosRepo, notifier SosNotifier, clk clock.Clock) *SosHandler {
	if repo == nil || clk == nil {
		panic("nil dependency passed to NewSosHandler")
	}
	return &SosHandler{Repo: repo, Notifier: notifier, Clock: clk}
}

// Create handles POST /v1/sos. Location is a lat/lon pair when the
// reporting device has coordinates, or a manual description otherwise;
// at least one must be present.
func (h *SosHandler) Create(c echo.Context) error {
	var body struct {
		EmergencyType  string   `json:"emergency_type"`
		Latitude       *float64 `json:"latitude"`
		Longitude      *float64 `json:"longitude"`
		ManualLocation string   `json:"manual_location"`
	}
	if err := c.Bind(&body); err != nil || body.EmergencyType == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "emergency_type is required"})
	}
	hasCoords := body.Latitude != nil && body.Longitude != nil
	if !hasCoords && body.ManualLocation == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "location is required (coordinates or manual_location)"})
	}
	alert := &model.SosAlert{
		UserID:         middleware.UserID(c),
		EmergencyType:  body.EmergencyType,
		Latitude:       body.Latitude,
		Longitude:      body.Longitude,
		ManualLocation: body.ManualLocation,
	}
	if err := h.Repo.Create(c.Request().Context(), alert); err != nil {
		return respondError(c, err)
	}
	h.publish(c, alert, model.SosOpen)
	return c.JSON(http.StatusCreated, echo.Map{
		"reference": alert.Reference,
		"status":    alert.Status,
	})
}

// Acknowledge handles POST /v1/admin/sos/:ref/acknowledge.
func (h *SosHandler) Acknowledge(c echo.Context) error {
	ref := c.Param("ref")
	if err := h.Repo.Acknowledge(c.Request().Context(), ref); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reference": ref, "status": model.SosAcknowledged})
}

// Resolve handles POST /v1/admin/sos/:ref/resolve and records the
// resolving operator.
func (h *SosHandler) Resolve(c echo.Context) error {
	ref := c.Param("ref")
	ctx := c.Request().Context()
	if err := h.Repo.Resolve(ctx, ref, middleware.UserID(c), h.Clock.Now()); err != nil {
		return respondError(c, err)
	}
	if alert, err := h.Repo.GetByReference(ctx, ref); err == nil {
		h.publish(c, alert, model.SosResolved)
	}
	return c.JSON(http.StatusOK, echo.Map{"reference": ref, "status": model.SosResolved})
}

// ListOpen handles GET /v1/admin/sos and returns unresolved alerts,
// oldest first.
func (h *SosHandler) ListOpen(c echo.Context) error {
	alerts, err := h.Repo.ListOpen(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"alerts": alerts})
}

// publish sends the lifecycle event, best effort.
func (h *SosHandler) publish(c echo.Context, alert *model.SosAlert, status string) {
	if h.Notifier == nil {
		return
	}
	event := queue.SosAlertEvent{
		Reference:     alert.Reference,
		EmergencyType: alert.EmergencyType,
		Status:        status,
		Latitude:      alert.Latitude,
		Longitude:     alert.Longitude,
		Location:      alert.ManualLocation,
		OccurredAt:    h.Clock.Now().Format(time.RFC3339),
	}
	if err := h.Notifier.PublishSosAlert(c.Request().Context(), event); err != nil {
		log.Printf("sos: alert event publish failed: %v", err)
	}
}
