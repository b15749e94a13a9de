package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/handler"
	"github.com/iliyamo/planetarium-reservation/internal/middleware"
)

type catalogHandlers struct {
	shows    *handler.ShowHandler
	themes   *handler.ThemeHandler
	domes    *handler.DomeHandler
	sessions *handler.SessionHandler
}

// RegisterCatalog mounts shows, themes, domes and sessions. Every user may
// read; only staff may write. Shows, themes and domes are served through
// the Redis cache. A theme write also drops cached shows because a show
// lists its theme ids. Image uploads are staff-only whatever the method.
func RegisterCatalog(e *echo.Echo, d Deps, h catalogHandlers) {
	g := e.Group("/api/planetarium", authenticated(d)...)
	g.Use(middleware.StaffOrReadOnly())

	shows := g.Group("/astronomy_show", middleware.NewRedisCache(d.Cache, d.Redis, d.Log, "shows"))
	shows.GET("/", h.shows.List)
	shows.POST("/", h.shows.Create)
	shows.GET("/:id/", h.shows.Get)
	shows.PUT("/:id/", h.shows.Update)
	shows.PATCH("/:id/", h.shows.Update)
	shows.POST("/:id/upload-image/", h.shows.UploadImage, middleware.RequireStaff())

	themes := g.Group("/show_theme", middleware.NewRedisCache(d.Cache, d.Redis, d.Log, "themes", "shows"))
	themes.GET("/", h.themes.List)
	themes.POST("/", h.themes.Create)
	themes.GET("/:id/", h.themes.Get)
	themes.PUT("/:id/", h.themes.Update)
	themes.PATCH("/:id/", h.themes.Update)

	domes := g.Group("/planetarium_dome", middleware.NewRedisCache(d.Cache, d.Redis, d.Log, "domes"))
	domes.GET("/", h.domes.List)
	domes.POST("/", h.domes.Create)
	domes.GET("/:id/", h.domes.Get)
	domes.PUT("/:id/", h.domes.Update)
	domes.PATCH("/:id/", h.domes.Update)
	domes.POST("/:id/upload-image/", h.domes.UploadImage, middleware.RequireStaff())

	sessions := g.Group("/show_session")
	sessions.GET("/", h.sessions.List)
	sessions.POST("/", h.sessions.Create)
	sessions.GET("/:id/", h.sessions.Get)
	sessions.PUT("/:id/", h.sessions.Update)
	sessions.PATCH("/:id/", h.sessions.Update)
}
