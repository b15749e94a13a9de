package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

// ReservationHandler serves /api/planetarium/reservation/. Every
// operation is scoped to the authenticated user: the owner of a new
// reservation comes from the token, never from the body, and another
// user's reservation answers 404 exactly like a missing one. Writes run
// through service.ReservationService so a reservation and all of its
// tickets persist together or not at all.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo // user-scoped reads
	Booking      *service.ReservationService // atomic create, replace and cancel
	Pages        PageSizes
	Log          *logger.Logger
}

// ticketSpecReq is one requested seat. Bounds against the dome are
// checked by the service, which knows the session's layout.
type ticketSpecReq struct {
	ShowSession uint64 `json:"show_session" validate:"required"`
	Row         int    `json:"row" validate:"min=1"`
	Seat        int    `json:"seat" validate:"min=1"`
}

// reservationReq is the body of POST and PUT. An empty or missing tickets
// list is rejected by the service before anything is written.
type reservationReq struct {
	Tickets []ticketSpecReq `json:"tickets" validate:"dive"`
}

func (r reservationReq) specs() []model.TicketSpec {
	out := make([]model.TicketSpec, len(r.Tickets))
	for i, t := range r.Tickets {
		out[i] = model.TicketSpec{ShowSessionID: t.ShowSession, Row: t.Row, Seat: t.Seat}
	}
	return out
}

// List handles GET /reservation/ and pages through the caller's own
// reservations, newest first, each with its tickets.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	return list(c, h.Pages.Default, h.Pages.Max, func(p repository.Page) ([]model.Reservation, int, error) {
		return h.Reservations.ListForUser(ctx, uid, p)
	}, func(r model.Reservation) any { return r })
}

// Get handles GET /reservation/:id/ for a reservation the caller owns.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Reservations.GetForUser(ctx, id, uid)
	if errors.Is(err, repository.ErrReservationNotFound) {
		return notFound(c)
	}
	if err != nil {
		return internalError(c, h.Log, "get reservation", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Create handles POST /reservation/ and books the requested seats for the
// caller. It answers 201 with the reservation and its tickets. Any seat
// that is out of bounds, taken, repeated in the request or in an unknown
// session fails the whole request with 400 on that seat's path, for
// example "tickets[1]" or "tickets[0].row", and nothing is written.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req reservationReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Booking.Create(ctx, uid, req.specs())
	if err != nil {
		return h.bookingErr(c, "create reservation", err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Replace handles PUT /reservation/:id/ and swaps the reservation's tickets
// for the submitted set in one transaction. Seats the reservation already
// holds may be kept; on any failure the old tickets stay in place.
func (h *ReservationHandler) Replace(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	var req reservationReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Booking.Replace(ctx, uid, id, req.specs())
	if err != nil {
		return h.bookingErr(c, "replace reservation", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /reservation/:id/. The tickets go with the
// reservation and the seats become free again. It answers 204.
func (h *ReservationHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Booking.Cancel(ctx, uid, id); err != nil {
		return h.bookingErr(c, "cancel reservation", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// bookingErr maps service and repository errors to responses.
func (h *ReservationHandler) bookingErr(c echo.Context, op string, err error) error {
	var te *service.TicketError
	switch {
	case errors.Is(err, service.ErrNoTickets):
		return fieldErrors(c, map[string]string{"tickets": "a reservation needs at least one ticket"})
	case errors.As(err, &te):
		return fieldErrors(c, map[string]string{ticketErrorPath("tickets", te): te.Reason})
	case errors.Is(err, repository.ErrReservationNotFound):
		return notFound(c)
	}
	return internalError(c, h.Log, op, err)
}

// ticketErrorPath names the offending element, e.g. "tickets[1].row". A
// standalone ticket (Index -1) reports the bare field name.
func ticketErrorPath(list string, te *service.TicketError) string {
	if te.Index < 0 {
		if te.Field == "" {
			return "non_field_errors"
		}
		return te.Field
	}
	p := fmt.Sprintf("%s[%d]", list, te.Index)
	if te.Field != "" {
		p += "." + te.Field
	}
	return p
}
