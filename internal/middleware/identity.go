package middleware

// identity.go defines helpers shared across middleware and handlers for
// extracting the authenticated principal that JWTAuth stored in the
// Echo context. The auth service encodes the numeric user id in the
// token subject; tokens from older releases carry it as a JSON number,
// newer ones as a string, so both shapes are accepted.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id from the context, or zero
// when the request is anonymous. Zero is a valid caller for public
// endpoints such as booking by guests.
func UserID(c echo.Context) uint64 {
	v := c.Get("user_id")
	if v == nil {
		return 0
	}
	switch id := v.(type) {
	case float64:
		if id > 0 {
			return uint64(id)
		}
	case string:
		if n, err := strconv.ParseUint(id, 10, 64); err == nil {
			return n
		}
	case uint64:
		return id
	}
	return 0
}

// rateKeyIdentity produces the per-caller component of a rate-limit
// key: the user id when authenticated, the remote IP otherwise.
func rateKeyIdentity(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return "u" + strconv.FormatUint(id, 10)
	}
	return "ip" + c.RealIP()
}
