package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// Context keys written by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// CallerFrom returns the identity JWTAuth stored on the context.  The
// zero Caller is returned for anonymous requests.
func CallerFrom(c echo.Context) model.Caller {
	id, _ := c.Get(ctxUserID).(uint64)
	role, _ := c.Get(ctxRole).(string)
	return model.Caller{UserID: id, Role: role}
}

// callerKey is the user component of rate limit keys: the decimal user
// id, or "anon".
func callerKey(c echo.Context) string {
	if caller := CallerFrom(c); caller.Authenticated() {
		return strconv.FormatUint(caller.UserID, 10)
	}
	return "anon"
}
