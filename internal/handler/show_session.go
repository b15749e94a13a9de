package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// SessionHandler serves /api/planetarium/show_session/. A session places
// one astronomy show in one dome at one time. Every response is enriched
// with the show title, dome name and capacity, and the live count of sold
// and available tickets, all computed by the repository in one query.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Shows    *repository.ShowRepo // reference checks on write
	Domes    *repository.DomeRepo // reference checks on write
	Pages    PageSizes            // sessions use Pages.Session as default
	Log      *logger.Logger
}

// sessionReq is the body of POST, PUT and PATCH. show_time is RFC 3339.
type sessionReq struct {
	AstronomyShow   uint64    `json:"astronomy_show" validate:"required"`
	PlanetariumDome uint64    `json:"planetarium_dome" validate:"required"`
	ShowTime        time.Time `json:"show_time" validate:"required"`
}

// sessionResp mirrors the stored session plus the computed read-only
// fields.
type sessionResp struct {
	ID                 uint64    `json:"id"`
	AstronomyShow      uint64    `json:"astronomy_show"`
	PlanetariumDome    uint64    `json:"planetarium_dome"`
	ShowTime           time.Time `json:"show_time"`
	AstronomyShowTitle string    `json:"astronomy_show_title"`
	DomeName           string    `json:"dome_name"`
	DomeCapacity       int       `json:"dome_capacity"`
	TicketsSold        int       `json:"tickets_sold"`
	TicketsAvailable   int       `json:"tickets_available"`
}

func renderSession(s model.ShowSessionDetail) any {
	return sessionResp{
		ID:                 s.ID,
		AstronomyShow:      s.AstronomyShowID,
		PlanetariumDome:    s.DomeID,
		ShowTime:           s.ShowTime,
		AstronomyShowTitle: s.ShowTitle,
		DomeName:           s.DomeName,
		DomeCapacity:       s.Dome().Capacity(),
		TicketsSold:        s.TicketsSold,
		TicketsAvailable:   s.TicketsAvailable(),
	}
}

// List handles GET /show_session/. ?astronomy_show=<id> keeps one show's
// sessions and ?date=YYYY-MM-DD keeps those starting on that UTC day.
// Malformed filter values are a 400 naming the parameter. Results are
// ordered by show time.
func (h *SessionHandler) List(c echo.Context) error {
	var f repository.SessionFilter
	if raw := c.QueryParam("astronomy_show"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fieldErrors(c, map[string]string{"astronomy_show": "enter a whole number"})
		}
		f.ShowID = id
	}
	if raw := c.QueryParam("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return fieldErrors(c, map[string]string{"date": "enter a date in YYYY-MM-DD format"})
		}
		f.Date = &day
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	return list(c, h.Pages.Session, h.Pages.Max, func(p repository.Page) ([]model.ShowSessionDetail, int, error) {
		return h.Sessions.List(ctx, f, p)
	}, renderSession)
}

// Get handles GET /show_session/:id/.
func (h *SessionHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Sessions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get session", err)
	}
	return c.JSON(http.StatusOK, renderSession(*s))
}

// Create handles POST /show_session/. An unknown show or dome is a 400 on
// the matching field; on success the stored session is reloaded so the
// 201 body carries the computed fields.
func (h *SessionHandler) Create(c echo.Context) error {
	var req sessionReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if bad, err := h.checkRefs(ctx, c, req); bad || err != nil {
		return err
	}
	s := model.ShowSession{AstronomyShowID: req.AstronomyShow, DomeID: req.PlanetariumDome, ShowTime: req.ShowTime}
	if err := h.Sessions.Create(ctx, &s); err != nil {
		return h.writeErr(c, "create session", err)
	}
	return h.respond(ctx, c, http.StatusCreated, s.ID)
}

// Update handles PUT and PATCH on /show_session/:id/. Moving a session to
// another dome keeps its tickets; the availability figures are recomputed
// against the new layout.
func (h *SessionHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cur, err := h.Sessions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get session", err)
	}
	var req sessionReq
	if c.Request().Method == http.MethodPatch {
		req = sessionReq{AstronomyShow: cur.AstronomyShowID, PlanetariumDome: cur.DomeID, ShowTime: cur.ShowTime}
	}
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	if bad, err := h.checkRefs(ctx, c, req); bad || err != nil {
		return err
	}
	s := model.ShowSession{ID: id, AstronomyShowID: req.AstronomyShow, DomeID: req.PlanetariumDome, ShowTime: req.ShowTime}
	if err := h.Sessions.Update(ctx, &s); err != nil {
		return h.writeErr(c, "update session", err)
	}
	return h.respond(ctx, c, http.StatusOK, id)
}

// respond reloads the session with its computed fields and writes it.
func (h *SessionHandler) respond(ctx context.Context, c echo.Context, status int, id uint64) error {
	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return internalError(c, h.Log, "reload session", err)
	}
	return c.JSON(status, renderSession(*s))
}

// checkRefs answers 400 when the show or the dome does not exist.
func (h *SessionHandler) checkRefs(ctx context.Context, c echo.Context, req sessionReq) (bool, error) {
	fields := map[string]string{}
	if _, err := h.Shows.GetByID(ctx, req.AstronomyShow); err != nil {
		if !errors.Is(err, repository.ErrShowNotFound) {
			return true, internalError(c, h.Log, "check session show", err)
		}
		fields["astronomy_show"] = fmt.Sprintf("astronomy show %d does not exist", req.AstronomyShow)
	}
	if _, err := h.Domes.GetByID(ctx, req.PlanetariumDome); err != nil {
		if !errors.Is(err, repository.ErrDomeNotFound) {
			return true, internalError(c, h.Log, "check session dome", err)
		}
		fields["planetarium_dome"] = fmt.Sprintf("planetarium dome %d does not exist", req.PlanetariumDome)
	}
	if len(fields) > 0 {
		return true, fieldErrors(c, fields)
	}
	return false, nil
}

func (h *SessionHandler) writeErr(c echo.Context, op string, err error) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return fieldErrors(c, map[string]string{"non_field_errors": "show or dome no longer exists"})
	}
	return internalError(c, h.Log, op, err)
}
