package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// ShowHandler serves /api/planetarium/astronomy_show/. Reads are open to
// every authenticated user; writes and image uploads need a staff token,
// which the route group enforces before any method here runs. Responses
// carry the ids of the themes a show belongs to and an absolute media URL
// for its poster (null until one is uploaded).
type ShowHandler struct {
	Shows *repository.ShowRepo // astronomy_shows and their theme links
	Media Media                // where posters are written and served from
	Pages PageSizes            // default and maximum page sizes
	Log   *logger.Logger       // API and database failures
}

// showReq is the body of POST, PUT and PATCH. Themes are attached from the
// theme side, so a show write never touches show_theme_shows.
type showReq struct {
	Title       string `json:"title" validate:"required,max=255"` // trimmed before saving
	Description string `json:"description"`                       // free text, may be empty
}

type showResp struct {
	ID          uint64   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Themes      []uint64 `json:"themes"`
	Image       *string  `json:"image"`
}

func (h *ShowHandler) render(s model.AstronomyShow) any {
	return showResp{ID: s.ID, Title: s.Title, Description: s.Description, Themes: s.Themes, Image: h.Media.link(s.Image)}
}

// List handles GET /astronomy_show/. ?title= keeps shows whose title
// contains the value in any case; ?themes=1,2 keeps shows linked to at
// least one of the listed themes. Both filters combine with AND. A
// malformed theme list is a 400 on "themes"; a page past the end is 404.
func (h *ShowHandler) List(c echo.Context) error {
	f := repository.ShowFilter{Title: c.QueryParam("title")}
	ids, ok := parseIDList(c.QueryParam("themes"))
	if !ok {
		return fieldErrors(c, map[string]string{"themes": "expected a comma separated list of ids"})
	}
	f.ThemeIDs = ids

	ctx, cancel := requestCtx(c)
	defer cancel()
	return list(c, h.Pages.Default, h.Pages.Max, func(p repository.Page) ([]model.AstronomyShow, int, error) {
		return h.Shows.List(ctx, f, p)
	}, h.render)
}

// Get handles GET /astronomy_show/:id/ and answers 404 for an unknown id.
func (h *ShowHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	s, err := h.Shows.GetByID(ctx, id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get show", err)
	}
	return c.JSON(http.StatusOK, h.render(*s))
}

// Create handles POST /astronomy_show/. It returns 201 with the stored
// show, or 400 with per-field reasons when the title is missing or too
// long.
func (h *ShowHandler) Create(c echo.Context) error {
	var req showReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	s := model.AstronomyShow{Title: strings.TrimSpace(req.Title), Description: req.Description}
	if err := h.Shows.Create(ctx, &s); err != nil {
		return internalError(c, h.Log, "create show", err)
	}
	return c.JSON(http.StatusCreated, h.render(s))
}

// Update handles PUT (all fields) and PATCH (only the fields sent) on
// /astronomy_show/:id/. PATCH starts from the stored values so omitted
// fields keep them. Theme links and the poster are left alone.
func (h *ShowHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cur, err := h.Shows.GetByID(ctx, id)
	if errors.Is(err, repository.ErrShowNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get show", err)
	}

	var req showReq
	if c.Request().Method == http.MethodPatch {
		req = showReq{Title: cur.Title, Description: cur.Description}
	}
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	cur.Title, cur.Description = strings.TrimSpace(req.Title), req.Description
	if err := h.Shows.Update(ctx, cur); err != nil {
		return internalError(c, h.Log, "update show", err)
	}
	return c.JSON(http.StatusOK, h.render(*cur))
}

// UploadImage handles POST /astronomy_show/:id/upload-image/. The poster is
// read from the multipart field "image", sniffed, written under the media
// root and linked to the show, replacing any earlier poster. The response
// holds the show id and the new absolute image URL.
func (h *ShowHandler) UploadImage(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if _, err := h.Shows.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return notFound(c)
		}
		return internalError(c, h.Log, "get show", err)
	}
	rel, ok, err := h.Media.receive(c, "shows")
	if !ok {
		return err
	}
	if err := h.Shows.SetImage(ctx, id, rel); err != nil {
		return internalError(c, h.Log, "set show image", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "image": h.Media.link(&rel)})
}

// firstErr writes field errors, or passes a non-validation error on to
// the error handler.
func firstErr(c echo.Context, fields map[string]string, err error) error {
	if err != nil {
		return err
	}
	return fieldErrors(c, fields)
}

// parseIDList parses "1,2,3". An empty string yields no ids.
func parseIDList(raw string) ([]uint64, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, true
	}
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, n)
	}
	return ids, true
}
