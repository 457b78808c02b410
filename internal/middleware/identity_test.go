package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func contextWithClaim(v any) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if v != nil {
		c.Set("user_id", v)
	}
	return c
}

func TestUserID_ClaimShapes(t *testing.T) {
	cases := []struct {
		name  string
		claim any
		want  uint64
	}{
		{"absent", nil, 0},
		{"json number", float64(42), 42},
		{"string subject", "42", 42},
		{"native uint64", uint64(42), 42},
		{"garbage string", "not-a-number", 0},
		{"negative number", float64(-1), 0},
		{"unexpected type", []int{1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserID(contextWithClaim(tc.claim)))
		})
	}
}

func TestRateKeyIdentity(t *testing.T) {
	c := contextWithClaim(uint64(7))
	assert.Equal(t, "u7", rateKeyIdentity(c))

	anon := contextWithClaim(nil)
	anon.Request().RemoteAddr = "203.0.113.9:1234"
	assert.Equal(t, "ip203.0.113.9", rateKeyIdentity(anon))
}
