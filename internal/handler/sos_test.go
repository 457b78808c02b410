package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/temple-slot-admission/internal/repository"
)

// fixedTestClock pins Now for handler tests.
type fixedTestClock struct{}

func (fixedTestClock) Now() time.Time {
	return time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
}

func newSosHandlerForValidation() *SosHandler {
	// The repo is never reached: these tests exercise only the request
	// validation that rejects before any store call.
	return NewSosHandler(repository.NewSosRepo(nil), nil, fixedTestClock{})
}

func TestSosCreate_RequiresEmergencyType(t *testing.T) {
	h := newSosHandlerForValidation()

	c, rec := newBookingContext(http.MethodPost, "/v1/sos", `{"manual_location":"east gate"}`)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSosCreate_RequiresSomeLocation(t *testing.T) {
	h := newSosHandlerForValidation()

	c, rec := newBookingContext(http.MethodPost, "/v1/sos", `{"emergency_type":"MEDICAL"}`)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSosCreate_PartialCoordinatesRejected(t *testing.T) {
	h := newSosHandlerForValidation()

	// Latitude without longitude does not count as a location.
	c, rec := newBookingContext(http.MethodPost, "/v1/sos", `{"emergency_type":"MEDICAL","latitude":13.75}`)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
