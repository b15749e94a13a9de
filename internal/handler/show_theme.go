package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// ThemeHandler serves /api/planetarium/show_theme/. A theme owns its links
// to astronomy shows: writing a theme replaces the full list of linked
// show ids, and every id must name an existing show.
type ThemeHandler struct {
	Themes *repository.ThemeRepo
	Shows  *repository.ShowRepo // used to reject unknown show ids
	Pages  PageSizes
	Log    *logger.Logger
}

type themeReq struct {
	Name  string   `json:"name" validate:"required,max=255"`
	Shows []uint64 `json:"shows"` // linked astronomy show ids; empty clears them
}

// List handles GET /show_theme/ ordered by id.
func (h *ThemeHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	return list(c, h.Pages.Default, h.Pages.Max, func(p repository.Page) ([]model.ShowTheme, int, error) {
		return h.Themes.List(ctx, p)
	}, func(t model.ShowTheme) any { return t })
}

// Get handles GET /show_theme/:id/.
func (h *ThemeHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t, err := h.Themes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrThemeNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get theme", err)
	}
	return c.JSON(http.StatusOK, t)
}

// Create handles POST /show_theme/. Unknown show ids are a 400 on "shows"
// and nothing is written.
func (h *ThemeHandler) Create(c echo.Context) error {
	var req themeReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if bad, err := h.unknownShows(ctx, c, req.Shows); bad || err != nil {
		return err
	}
	t := model.ShowTheme{Name: strings.TrimSpace(req.Name), Shows: req.Shows}
	if err := h.Themes.Create(ctx, &t); err != nil {
		return h.writeErr(c, "create theme", err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT and PATCH. A PATCH without "shows" keeps the links.
func (h *ThemeHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cur, err := h.Themes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrThemeNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get theme", err)
	}

	var req themeReq
	if c.Request().Method == http.MethodPatch {
		req = themeReq{Name: cur.Name, Shows: cur.Shows}
	}
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	if bad, err := h.unknownShows(ctx, c, req.Shows); bad || err != nil {
		return err
	}
	cur.Name, cur.Shows = strings.TrimSpace(req.Name), req.Shows
	if err := h.Themes.Update(ctx, cur); err != nil {
		return h.writeErr(c, "update theme", err)
	}
	return c.JSON(http.StatusOK, cur)
}

// unknownShows answers 400 when any id does not name a show.
func (h *ThemeHandler) unknownShows(ctx context.Context, c echo.Context, ids []uint64) (bool, error) {
	missing, err := h.Shows.MissingIDs(ctx, ids)
	if err != nil {
		return true, internalError(c, h.Log, "check theme shows", err)
	}
	if len(missing) == 0 {
		return false, nil
	}
	return true, fieldErrors(c, map[string]string{"shows": fmt.Sprintf("astronomy show %d does not exist", missing[0])})
}

func (h *ThemeHandler) writeErr(c echo.Context, op string, err error) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return fieldErrors(c, map[string]string{"shows": "unknown astronomy show"})
	}
	return internalError(c, h.Log, op, err)
}
