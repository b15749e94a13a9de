package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IsStaff reports the staff flag stored by JWTAuth.
func IsStaff(c echo.Context) bool {
	v, _ := c.Get(CtxIsStaff).(bool)
	return v
}

// StaffOrReadOnly lets any authenticated user through on safe methods and
// requires staff for everything else. It must run after JWTAuth.
func StaffOrReadOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			if !IsStaff(c) {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

// RequireStaff rejects non-staff users regardless of method.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsStaff(c) {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "you do not have permission to perform this action"})
}
