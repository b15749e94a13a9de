package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// TicketFilter narrows List to one show session when SessionID is set.
type TicketFilter struct {
	SessionID uint64
}

// TicketRepo persists tickets. The (show_session_id, row_no, seat_no)
// unique index is the last line of defence against double booking; its
// violations surface as ErrSeatTaken.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, row_no, seat_no, show_session_id, reservation_id`

func scanTicket(row interface{ Scan(...any) error }) (model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.Row, &t.Seat, &t.ShowSessionID, &t.ReservationID)
	return t, err
}

func mapTicketWriteErr(err error) error {
	switch {
	case database.IsDuplicateKey(err), database.IsDeadlock(err):
		// a deadlock victim lost a race for the same seats
		return ErrSeatTaken
	case database.IsForeignKeyViolation(err):
		return ErrInvalidReference
	}
	return err
}

// Create inserts one ticket and sets its id.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO tickets (row_no, seat_no, show_session_id, reservation_id) VALUES (?, ?, ?, ?)`,
		t.Row, t.Seat, t.ShowSessionID, t.ReservationID)
	if err != nil {
		return mapTicketWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns ErrTicketNotFound when no ticket has the id.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := scanTicket(database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update moves a ticket to another seat, session or reservation.
func (r *TicketRepo) Update(ctx context.Context, t *model.Ticket) error {
	if _, err := r.GetByID(ctx, t.ID); err != nil {
		return err
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE tickets SET row_no = ?, seat_no = ?, show_session_id = ?, reservation_id = ? WHERE id = ?`,
		t.Row, t.Seat, t.ShowSessionID, t.ReservationID, t.ID)
	if err != nil {
		return mapTicketWriteErr(err)
	}
	return nil
}

// SeatTaken reports whether a persisted ticket already holds the seat.
// Tickets of excludeReservation (0 for none) and the ticket excludeTicket
// (0 for none) are ignored so an edit does not collide with itself.
func (r *TicketRepo) SeatTaken(ctx context.Context, sessionID uint64, row, seat int, excludeReservation, excludeTicket uint64) (bool, error) {
	var n int
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets
		  WHERE show_session_id = ? AND row_no = ? AND seat_no = ?
		    AND reservation_id <> ? AND id <> ?`,
		sessionID, row, seat, excludeReservation, excludeTicket).Scan(&n)
	return n > 0, err
}

// List returns one page of tickets ordered by id plus the total count.
func (r *TicketRepo) List(ctx context.Context, f TicketFilter, p Page) ([]model.Ticket, int, error) {
	cond, args := "", []any{}
	if f.SessionID != 0 {
		cond = ` WHERE show_session_id = ?`
		args = append(args, f.SessionID)
	}
	conn := database.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+ticketColumns+` FROM tickets`+cond+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// ListByReservations groups the tickets of the given reservations.
func (r *TicketRepo) ListByReservations(ctx context.Context, reservationIDs []uint64) (map[uint64][]model.Ticket, error) {
	out := map[uint64][]model.Ticket{}
	if len(reservationIDs) == 0 {
		return out, nil
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE reservation_id IN (`+placeholders(len(reservationIDs))+`) ORDER BY id`,
		idArgs(reservationIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out[t.ReservationID] = append(out[t.ReservationID], t)
	}
	return out, rows.Err()
}

// DeleteByReservation drops every ticket of a reservation.
func (r *TicketRepo) DeleteByReservation(ctx context.Context, reservationID uint64) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tickets WHERE reservation_id = ?`, reservationID)
	return err
}

// OwnerID returns the user owning the ticket's reservation.
func (r *TicketRepo) OwnerID(ctx context.Context, ticketID uint64) (uint64, error) {
	var uid uint64
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT r.user_id FROM tickets t JOIN reservations r ON r.id = t.reservation_id WHERE t.id = ?`, ticketID).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTicketNotFound
	}
	return uid, err
}
