package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/temple-slot-admission/internal/admission"
	"github.com/iliyamo/temple-slot-admission/internal/model"
	"github.com/iliyamo/temple-slot-admission/internal/repository"
)

// mockAdmission implements AdmissionService with swappable function
// fields, so each test wires exactly the behavior it needs.
type mockAdmission struct {
	bookFn    func(ctx context.Context, req admission.BookingRequest) (*model.Reservation, error)
	checkInFn func(ctx context.Context, qrCode string) (*model.Reservation, error)
	cancelFn  func(ctx context.Context, reservationID uint64) error
	listFn    func(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

func (m *mockAdmission) BookSlot(ctx context.Context, req admission.BookingRequest) (*model.Reservation, error) {
	return m.bookFn(ctx, req)
}

func (m *mockAdmission) CheckIn(ctx context.Context, qrCode string) (*model.Reservation, error) {
	return m.checkInFn(ctx, qrCode)
}

func (m *mockAdmission) Cancel(ctx context.Context, reservationID uint64) error {
	return m.cancelFn(ctx, reservationID)
}

func (m *mockAdmission) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return m.listFn(ctx, userID)
}

func newBookingContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBook_Created(t *testing.T) {
	created := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	mock := &mockAdmission{
		bookFn: func(_ context.Context, req admission.BookingRequest) (*model.Reservation, error) {
			assert.Equal(t, uint64(7), req.SlotID)
			assert.Equal(t, uint32(3), req.PartySize)
			assert.Equal(t, "dev@example.com", req.Contact)
			return &model.Reservation{
				ID:        11,
				SlotID:    req.SlotID,
				PartySize: req.PartySize,
				QRCode:    "abc123",
				Status:    model.ReservationConfirmed,
				CreatedAt: created,
			}, nil
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodPost, "/v1/slots/7/book", `{"party_size":3,"contact":"dev@example.com"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.Book(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(11), body["id"])
	assert.Equal(t, "abc123", body["qr_code"])
	assert.Equal(t, model.ReservationConfirmed, body["status"])
	assert.Equal(t, "2026-08-26T09:00:00Z", body["created_at"])
	_, hasCheckedIn := body["checked_in_at"]
	assert.False(t, hasCheckedIn, "unattended reservations omit checked_in_at")
}

func TestBook_CapacityExceededMapsTo409(t *testing.T) {
	mock := &mockAdmission{
		bookFn: func(context.Context, admission.BookingRequest) (*model.Reservation, error) {
			return nil, repository.ErrCapacityExceeded
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodPost, "/v1/slots/7/book", `{"party_size":2}`)
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.Book(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CAPACITY_EXCEEDED", body["code"])
}

func TestBook_InvalidSlotID(t *testing.T) {
	h := NewBookingHandler(&mockAdmission{})

	for _, id := range []string{"abc", "0", "-3"} {
		c, rec := newBookingContext(http.MethodPost, "/v1/slots/"+id+"/book", `{"party_size":1}`)
		c.SetParamNames("id")
		c.SetParamValues(id)

		require.NoError(t, h.Book(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "slot id %q", id)
	}
}

func TestBook_InvalidPartySizeMapsTo400(t *testing.T) {
	mock := &mockAdmission{
		bookFn: func(context.Context, admission.BookingRequest) (*model.Reservation, error) {
			return nil, admission.ErrInvalidPartySize
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodPost, "/v1/slots/7/book", `{"party_size":0}`)
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, h.Book(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckIn_OK(t *testing.T) {
	at := time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC)
	mock := &mockAdmission{
		checkInFn: func(_ context.Context, qrCode string) (*model.Reservation, error) {
			assert.Equal(t, "abc123", qrCode)
			return &model.Reservation{ID: 11, Status: model.ReservationCheckedIn, CheckedInAt: &at, CreatedAt: at}, nil
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodPost, "/v1/checkin", `{"qr_code":"abc123"}`)

	require.NoError(t, h.CheckIn(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.ReservationCheckedIn, body["status"])
	assert.Equal(t, "2026-08-26T09:30:00Z", body["checked_in_at"])
}

func TestCheckIn_MissingCode(t *testing.T) {
	h := NewBookingHandler(&mockAdmission{})

	c, rec := newBookingContext(http.MethodPost, "/v1/checkin", `{}`)

	require.NoError(t, h.CheckIn(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckIn_RepeatScanMapsTo409(t *testing.T) {
	mock := &mockAdmission{
		checkInFn: func(context.Context, string) (*model.Reservation, error) {
			return nil, repository.ErrAlreadyCheckedIn
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodPost, "/v1/checkin", `{"qr_code":"abc123"}`)

	require.NoError(t, h.CheckIn(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ALREADY_CHECKED_IN", body["code"])
}

func TestCheckIn_UnknownCodeMapsTo404(t *testing.T) {
	mock := &mockAdmission{
		checkInFn: func(context.Context, string) (*model.Reservation, error) {
			return nil, repository.ErrReservationNotFound
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodPost, "/v1/checkin", `{"qr_code":"bogus"}`)

	require.NoError(t, h.CheckIn(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel_NoContent(t *testing.T) {
	var cancelled uint64
	mock := &mockAdmission{
		cancelFn: func(_ context.Context, id uint64) error {
			cancelled = id
			return nil
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodDelete, "/v1/reservations/11", "")
	c.SetParamNames("id")
	c.SetParamValues("11")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(11), cancelled)
}

func TestCancel_RepeatMapsTo409(t *testing.T) {
	mock := &mockAdmission{
		cancelFn: func(context.Context, uint64) error { return repository.ErrAlreadyCancelled },
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodDelete, "/v1/reservations/11", "")
	c.SetParamNames("id")
	c.SetParamValues("11")

	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestList_RequiresIdentity(t *testing.T) {
	h := NewBookingHandler(&mockAdmission{})

	c, rec := newBookingContext(http.MethodGet, "/v1/reservations", "")

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList_ReturnsCallersReservations(t *testing.T) {
	mock := &mockAdmission{
		listFn: func(_ context.Context, userID uint64) ([]model.Reservation, error) {
			assert.Equal(t, uint64(42), userID)
			return []model.Reservation{
				{ID: 2, SlotID: 7, PartySize: 1, Status: model.ReservationConfirmed, CreatedAt: time.Now()},
				{ID: 1, SlotID: 7, PartySize: 2, Status: model.ReservationCancelled, CreatedAt: time.Now()},
			}, nil
		},
	}
	h := NewBookingHandler(mock)

	c, rec := newBookingContext(http.MethodGet, "/v1/reservations", "")
	c.Set("user_id", uint64(42))

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reservations []reservationView `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reservations, 2)
	assert.Equal(t, uint64(2), body.Reservations[0].ID)
}
