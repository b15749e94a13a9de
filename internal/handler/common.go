package handler // HTTP handlers for the planetarium API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

// getUserID extracts the user_id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case int:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

func isStaff(c echo.Context) bool {
	v, _ := c.Get("is_staff").(bool)
	return v
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses the :id route parameter. Ids that do not parse cannot
// name any row, so the caller answers 404.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

func notFound(c echo.Context) error {
	return errorJSON(c, http.StatusNotFound, "not found")
}

func unauthorized(c echo.Context) error {
	return errorJSON(c, http.StatusUnauthorized, "authentication credentials were not provided")
}

// fieldErrors answers 400 with per-field reasons.
func fieldErrors(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
}

// internalError logs err under op and hides it from the client.
func internalError(c echo.Context, log *logger.Logger, op string, err error) error {
	log.Error("API", op+": "+err.Error())
	return errorJSON(c, http.StatusInternalServerError, "internal server error")
}

// ErrorHandler renders framework errors (unknown route, wrong method,
// bind failures) with the same JSON shape as handler errors.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		} else {
			log.Error("API", c.Request().Method+" "+c.Request().URL.Path+": "+err.Error())
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = errorJSON(c, status, msg)
		}
		if err != nil {
			log.Error("API", "write error response: "+err.Error())
		}
	}
}
