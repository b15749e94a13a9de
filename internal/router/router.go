// Package router wires repositories, the booking service and the handlers
// into one echo instance.
package router

import (
	"database/sql"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/handler"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/middleware"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

// Deps is everything the HTTP layer needs. Redis and Publisher may be nil.
type Deps struct {
	Cfg       config.Config
	DB        *sql.DB
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Publisher service.EventPublisher
	Log       *logger.Logger
}

// New builds the echo instance with every route registered. The returned
// service must be drained with Wait on shutdown so pending events go out.
func New(d Deps) (*echo.Echo, *service.ReservationService) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	// /api/.../show_theme and /api/.../show_theme/ are the same resource;
	// media files keep their exact path.
	e.Pre(echomw.AddTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, d.Cfg.MediaURL)
		},
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.BodyLimit("6M"))

	users := repository.NewUserRepo(d.DB)
	tokens := repository.NewTokenRepo(d.DB)
	shows := repository.NewShowRepo(d.DB)
	themes := repository.NewThemeRepo(d.DB)
	domes := repository.NewDomeRepo(d.DB)
	sessions := repository.NewSessionRepo(d.DB)
	tickets := repository.NewTicketRepo(d.DB)
	reservations := repository.NewReservationRepo(d.DB, tickets)

	booking := service.NewReservationService(database.Transactor{DB: d.DB}, sessions, tickets, reservations, d.Publisher, d.Log)

	pages := handler.PageSizes{Default: d.Cfg.DefaultPageSize, Session: d.Cfg.SessionPageSize, Max: d.Cfg.MaxPageSize}
	media := handler.Media{Root: d.Cfg.MediaRoot, URL: d.Cfg.MediaURL}

	RegisterRoutes(e, d.DB, d.Cfg)
	RegisterUser(e, d, handler.NewAuthHandler(d.Cfg, users, tokens, d.Log))
	RegisterCatalog(e, d, catalogHandlers{
		shows:    &handler.ShowHandler{Shows: shows, Media: media, Pages: pages, Log: d.Log},
		themes:   &handler.ThemeHandler{Themes: themes, Shows: shows, Pages: pages, Log: d.Log},
		domes:    &handler.DomeHandler{Domes: domes, Media: media, Pages: pages, Log: d.Log},
		sessions: &handler.SessionHandler{Sessions: sessions, Shows: shows, Domes: domes, Pages: pages, Log: d.Log},
	})
	RegisterBooking(e, d,
		&handler.ReservationHandler{Reservations: reservations, Booking: booking, Pages: pages, Log: d.Log},
		&handler.TicketHandler{Tickets: tickets, Reservations: reservations, Booking: booking, Pages: pages, Log: d.Log},
	)
	return e, booking
}

// RegisterRoutes registers the routes that need no authentication: the
// health check and read-only access to uploaded media.
func RegisterRoutes(e *echo.Echo, db *sql.DB, cfg config.Config) {
	e.GET("/healthz/", handler.Health(db))
	if cfg.MediaRoot != "" && cfg.MediaURL != "" {
		e.Static(cfg.MediaURL, cfg.MediaRoot)
	}
}

func authenticated(d Deps) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(d.Cfg.JWTSecret, d.Log),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
	}
}
