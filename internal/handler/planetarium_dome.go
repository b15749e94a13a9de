package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
)

// DomeHandler serves /api/planetarium/planetarium_dome/. A dome is laid
// out as rows x seats_in_row; the layout bounds every ticket sold for its
// sessions and its product is reported as capacity.
type DomeHandler struct {
	Domes *repository.DomeRepo // planetarium_domes
	Media Media                // dome photos
	Pages PageSizes
	Log   *logger.Logger
}

type domeReq struct {
	Name       string `json:"name" validate:"required,max=255"`
	Rows       int    `json:"rows" validate:"min=1"`         // number of rows, 1-based
	SeatsInRow int    `json:"seats_in_row" validate:"min=1"` // seats in every row
}

type domeResp struct {
	ID         uint64  `json:"id"`
	Name       string  `json:"name"`
	Rows       int     `json:"rows"`
	SeatsInRow int     `json:"seats_in_row"`
	Capacity   int     `json:"capacity"`
	Image      *string `json:"image"`
}

func (h *DomeHandler) render(d model.PlanetariumDome) any {
	return domeResp{ID: d.ID, Name: d.Name, Rows: d.Rows, SeatsInRow: d.SeatsInRow, Capacity: d.Capacity(), Image: h.Media.link(d.Image)}
}

// List handles GET /planetarium_dome/ ordered by id.
func (h *DomeHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	return list(c, h.Pages.Default, h.Pages.Max, func(p repository.Page) ([]model.PlanetariumDome, int, error) {
		return h.Domes.List(ctx, p)
	}, h.render)
}

// Get handles GET /planetarium_dome/:id/.
func (h *DomeHandler) Get(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	return c.JSON(http.StatusOK, h.render(*d))
}

// Create handles POST /planetarium_dome/ and answers 201 with the dome and
// its capacity. Rows and seats_in_row must both be at least 1.
func (h *DomeHandler) Create(c echo.Context) error {
	var req domeReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d := model.PlanetariumDome{Name: strings.TrimSpace(req.Name), Rows: req.Rows, SeatsInRow: req.SeatsInRow}
	if err := h.Domes.Create(ctx, &d); err != nil {
		return internalError(c, h.Log, "create dome", err)
	}
	return c.JSON(http.StatusCreated, h.render(d))
}

// Update handles PUT and PATCH. Shrinking a dome does not touch tickets
// already sold outside the new bounds.
func (h *DomeHandler) Update(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	var req domeReq
	if c.Request().Method == http.MethodPatch {
		req = domeReq{Name: d.Name, Rows: d.Rows, SeatsInRow: d.SeatsInRow}
	}
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d.Name, d.Rows, d.SeatsInRow = strings.TrimSpace(req.Name), req.Rows, req.SeatsInRow
	if err := h.Domes.Update(ctx, d); err != nil {
		return internalError(c, h.Log, "update dome", err)
	}
	return c.JSON(http.StatusOK, h.render(*d))
}

// UploadImage handles POST /planetarium_dome/:id/upload-image/ the same way
// ShowHandler.UploadImage does, storing files under uploads/domes.
func (h *DomeHandler) UploadImage(c echo.Context) error {
	d, err := h.load(c)
	if d == nil {
		return err
	}
	rel, ok, err := h.Media.receive(c, "domes")
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Domes.SetImage(ctx, d.ID, rel); err != nil {
		return internalError(c, h.Log, "set dome image", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": d.ID, "image": h.Media.link(&rel)})
}

// load fetches the dome named by :id. A nil dome means the response has
// been written.
func (h *DomeHandler) load(c echo.Context) (*model.PlanetariumDome, error) {
	id, ok := pathID(c)
	if !ok {
		return nil, notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	d, err := h.Domes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrDomeNotFound) {
		return nil, notFound(c)
	}
	if err != nil {
		return nil, internalError(c, h.Log, "get dome", err)
	}
	return d, nil
}
