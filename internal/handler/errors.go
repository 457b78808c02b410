package handler

// errors.go maps domain sentinel errors to stable, machine-readable
// error codes and HTTP statuses. Capacity and state-conflict errors
// return a specific code the client can branch on; anything unexpected
// collapses to a generic try-again response so internals never leak.

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/temple-slot-admission/internal/admission"
	"github.com/iliyamo/temple-slot-admission/internal/repository"
)

// errorCode pairs a stable code string with the HTTP status it maps to.
type errorCode struct {
	status int
	code   string
}

var errorCodes = []struct {
	err  error
	spec errorCode
}{
	{repository.ErrCapacityExceeded, errorCode{http.StatusConflict, "CAPACITY_EXCEEDED"}},
	{repository.ErrSlotInactive, errorCode{http.StatusConflict, "SLOT_INACTIVE"}},
	{repository.ErrSlotNotFound, errorCode{http.StatusNotFound, "SLOT_NOT_FOUND"}},
	{repository.ErrReservationNotFound, errorCode{http.StatusNotFound, "RESERVATION_NOT_FOUND"}},
	{repository.ErrAlreadyCheckedIn, errorCode{http.StatusConflict, "ALREADY_CHECKED_IN"}},
	{repository.ErrAlreadyCancelled, errorCode{http.StatusConflict, "ALREADY_CANCELLED"}},
	{repository.ErrReservationCancelled, errorCode{http.StatusConflict, "RESERVATION_CANCELLED"}},
	{repository.ErrAlertNotFound, errorCode{http.StatusNotFound, "ALERT_NOT_FOUND"}},
	{repository.ErrInvalidTransition, errorCode{http.StatusConflict, "INVALID_TRANSITION"}},
	{admission.ErrInvalidPartySize, errorCode{http.StatusBadRequest, "INVALID_PARTY_SIZE"}},
}

// respondError writes the JSON error body for err. Unrecognized errors
// (persistence failures and the like) are fatal to the individual
// request and surface as a 500 with a generic retry code.
func respondError(c echo.Context, err error) error {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return c.JSON(m.spec.status, echo.Map{"code": m.spec.code, "error": m.err.Error()})
		}
	}
	c.Logger().Errorf("internal error: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"code": "INTERNAL", "error": "temporary failure, try again"})
}
