package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller's id
// (uint64) and role (string) on the context under "user_id" and "role".
// Use CallerFrom to read them back.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			caller, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, caller.UserID)
			c.Set(ctxRole, caller.Role)
			return next(c)
		}
	}
}
