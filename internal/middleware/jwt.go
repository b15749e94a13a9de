// Package middleware holds the echo middleware shared by the route groups:
// bearer-token authentication, staff permissions, the Redis response cache,
// the Redis token-bucket rate limiter and the access log.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID  = "user_id"
	CtxIsStaff = "is_staff"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject (as uint64) and staff flag into the
// request context. Handlers read them via c.Get("user_id") and
// c.Get("is_staff"). Missing or bad tokens end the request with 401.
func JWTAuth(secret string, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication credentials were not provided"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				log.LogSecurity("jwt", "rejected token from "+c.RealIP())
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxIsStaff, claims.IsStaff)
			return next(c)
		}
	}
}
