package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
)

// RequestLogger writes one API line per request through log.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz/"
		},
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			latency := v.Latency
			if latency < 0 {
				latency = time.Duration(0)
			}
			log.LogAPI(v.Method, v.URI, v.Status, latency)
			return nil
		},
	})
}
