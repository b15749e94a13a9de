package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/model"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

// TicketHandler serves /api/planetarium/ticket/. Customers get their
// tickets through reservations; this endpoint is the staff view, used to
// correct individual seats. Writes are staff-only and go through the same
// seat checks as the booking flow, so a ticket can never be moved onto a
// taken seat or outside its dome.
type TicketHandler struct {
	Tickets      *repository.TicketRepo
	Reservations *repository.ReservationRepo // a written ticket must name one
	Booking      *service.ReservationService // bounds and seat checks
	Pages        PageSizes
	Log          *logger.Logger
}

type ticketReq struct {
	Row         int    `json:"row" validate:"min=1"`
	Seat        int    `json:"seat" validate:"min=1"`
	ShowSession uint64 `json:"show_session" validate:"required"`
	Reservation uint64 `json:"reservation" validate:"required"`
}

// List handles GET /ticket/ ordered by id. ?show_session=<id> keeps the
// tickets of one session.
func (h *TicketHandler) List(c echo.Context) error {
	var f repository.TicketFilter
	if raw := c.QueryParam("show_session"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fieldErrors(c, map[string]string{"show_session": "enter a whole number"})
		}
		f.SessionID = id
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	return list(c, h.Pages.Default, h.Pages.Max, func(p repository.Page) ([]model.Ticket, int, error) {
		return h.Tickets.List(ctx, f, p)
	}, func(t model.Ticket) any { return t })
}

// Get handles GET /ticket/:id/.
func (h *TicketHandler) Get(c echo.Context) error {
	t, err := h.load(c)
	if t == nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Create handles POST /ticket/ and adds a ticket to an existing
// reservation. It answers 201, or 400 naming the field or seat at fault.
func (h *TicketHandler) Create(c echo.Context) error {
	var req ticketReq
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t := model.Ticket{Row: req.Row, Seat: req.Seat, ShowSessionID: req.ShowSession, ReservationID: req.Reservation}
	if done, err := h.check(ctx, c, t, 0); done {
		return err
	}
	if err := h.Tickets.Create(ctx, &t); err != nil {
		return h.writeErr(c, "create ticket", err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT and PATCH on /ticket/:id/. The ticket's own seat does
// not count as taken, so a PATCH that leaves it in place succeeds.
func (h *TicketHandler) Update(c echo.Context) error {
	cur, err := h.load(c)
	if cur == nil {
		return err
	}
	var req ticketReq
	if c.Request().Method == http.MethodPatch {
		req = ticketReq{Row: cur.Row, Seat: cur.Seat, ShowSession: cur.ShowSessionID, Reservation: cur.ReservationID}
	}
	fields, err := bindValid(c, &req)
	if err != nil || fields != nil {
		return firstErr(c, fields, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t := model.Ticket{ID: cur.ID, Row: req.Row, Seat: req.Seat, ShowSessionID: req.ShowSession, ReservationID: req.Reservation}
	if done, err := h.check(ctx, c, t, cur.ID); done {
		return err
	}
	if err := h.Tickets.Update(ctx, &t); err != nil {
		return h.writeErr(c, "update ticket", err)
	}
	return c.JSON(http.StatusOK, t)
}

// QRCode renders the ticket as a PNG QR code. Only staff and the owner of
// the ticket's reservation may see it; anyone else gets 404.
func (h *TicketHandler) QRCode(c echo.Context) error {
	t, err := h.load(c)
	if t == nil {
		return err
	}
	if !isStaff(c) {
		uid, err := getUserID(c)
		if err != nil {
			return unauthorized(c)
		}
		ctx, cancel := requestCtx(c)
		defer cancel()
		owner, err := h.Tickets.OwnerID(ctx, t.ID)
		if err != nil && !errors.Is(err, repository.ErrTicketNotFound) {
			return internalError(c, h.Log, "ticket owner", err)
		}
		if owner != uid {
			return notFound(c)
		}
	}
	png, err := qrcode.Encode(ticketPayload(*t), qrcode.Medium, 256)
	if err != nil {
		return internalError(c, h.Log, "encode qr", err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// ticketPayload is the text encoded in a ticket's QR code.
func ticketPayload(t model.Ticket) string {
	return fmt.Sprintf("PLANETARIUM-TICKET;id=%d;session=%d;row=%d;seat=%d;reservation=%d",
		t.ID, t.ShowSessionID, t.Row, t.Seat, t.ReservationID)
}

// check validates the seat and the reservation before a write. done
// reports that a response has already been written.
func (h *TicketHandler) check(ctx context.Context, c echo.Context, t model.Ticket, self uint64) (bool, error) {
	if _, err := h.Reservations.GetByID(ctx, t.ReservationID); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return true, fieldErrors(c, map[string]string{"reservation": fmt.Sprintf("reservation %d does not exist", t.ReservationID)})
		}
		return true, internalError(c, h.Log, "check ticket reservation", err)
	}
	err := h.Booking.CheckTicket(ctx, t, self)
	var te *service.TicketError
	switch {
	case err == nil:
		return false, nil
	case errors.As(err, &te):
		return true, fieldErrors(c, map[string]string{ticketErrorPath("", te): te.Reason})
	}
	return true, internalError(c, h.Log, "check ticket", err)
}

func (h *TicketHandler) writeErr(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrSeatTaken):
		return fieldErrors(c, map[string]string{"non_field_errors": "seat already taken"})
	case errors.Is(err, repository.ErrInvalidReference):
		return fieldErrors(c, map[string]string{"non_field_errors": "show session or reservation no longer exists"})
	case errors.Is(err, repository.ErrTicketNotFound):
		return notFound(c)
	}
	return internalError(c, h.Log, op, err)
}

func (h *TicketHandler) load(c echo.Context) (*model.Ticket, error) {
	id, ok := pathID(c)
	if !ok {
		return nil, notFound(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t, err := h.Tickets.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, notFound(c)
	}
	if err != nil {
		return nil, internalError(c, h.Log, "get ticket", err)
	}
	return t, nil
}
