package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/handler"
	"github.com/iliyamo/planetarium-reservation/internal/middleware"
)

// RegisterUser mounts registration and token endpoints under /api/user.
// Only /me/ needs a bearer token.
func RegisterUser(e *echo.Echo, d Deps, a *handler.AuthHandler) {
	g := e.Group("/api/user", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	g.POST("/", a.Register)
	g.POST("/token/", a.Token)
	g.POST("/token/refresh/", a.Refresh)
	g.POST("/token/logout/", a.Logout)
	g.GET("/me/", a.Me, middleware.JWTAuth(d.Cfg.JWTSecret, d.Log))
}
