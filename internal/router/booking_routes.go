package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/handler"
	"github.com/iliyamo/planetarium-reservation/internal/middleware"
)

// RegisterBooking mounts reservations and tickets. Reservations are open
// to every authenticated user for their own bookings; tickets follow the
// catalog rule (read for all, write for staff).
func RegisterBooking(e *echo.Echo, d Deps, r *handler.ReservationHandler, t *handler.TicketHandler) {
	g := e.Group("/api/planetarium", authenticated(d)...)

	res := g.Group("/reservation")
	res.GET("/", r.List)
	res.POST("/", r.Create)
	res.GET("/:id/", r.Get)
	res.PUT("/:id/", r.Replace)
	res.DELETE("/:id/", r.Delete)

	tk := g.Group("/ticket", middleware.StaffOrReadOnly())
	tk.GET("/", t.List)
	tk.POST("/", t.Create)
	tk.GET("/:id/", t.Get)
	tk.PUT("/:id/", t.Update)
	tk.PATCH("/:id/", t.Update)
	tk.GET("/:id/qr/", t.QRCode)
}
