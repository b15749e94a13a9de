package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations. Every read that
// serves a customer takes the owning user id so one user can never load
// another user's reservation. Tickets are loaded through TicketRepo.
type ReservationRepo struct {
	db      *sql.DB
	tickets *TicketRepo
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, tickets *TicketRepo) *ReservationRepo {
	return &ReservationRepo{db: db, tickets: tickets}
}

// Create inserts the reservation row only. CreatedAt is set here when the
// caller left it zero.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	res.CreatedAt = res.CreatedAt.UTC().Truncate(time.Second)
	result, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO reservations (user_id, created_at) VALUES (?, ?)`, res.UserID, res.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID loads any reservation with its tickets. Staff-only paths use it;
// customer paths use GetForUser.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.get(ctx, `SELECT id, user_id, created_at FROM reservations WHERE id = ?`, id)
}

// GetForUser loads a reservation only when userID owns it. A reservation
// owned by someone else reports ErrReservationNotFound.
func (r *ReservationRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
	return r.get(ctx, `SELECT id, user_id, created_at FROM reservations WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *ReservationRepo) get(ctx context.Context, q string, args ...any) (*model.Reservation, error) {
	var res model.Reservation
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, args...).Scan(&res.ID, &res.UserID, &res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	res.CreatedAt = res.CreatedAt.UTC()
	byRes, err := r.tickets.ListByReservations(ctx, []uint64{res.ID})
	if err != nil {
		return nil, err
	}
	res.Tickets = byRes[res.ID]
	if res.Tickets == nil {
		res.Tickets = []model.Ticket{}
	}
	return &res, nil
}

// ListForUser returns the user's reservations, newest first, with tickets.
func (r *ReservationRepo) ListForUser(ctx context.Context, userID uint64, p Page) ([]model.Reservation, int, error) {
	conn := database.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT id, user_id, created_at FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userID, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	var ids []uint64
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.CreatedAt); err != nil {
			return nil, 0, err
		}
		res.CreatedAt = res.CreatedAt.UTC()
		out = append(out, res)
		ids = append(ids, res.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	byRes, err := r.tickets.ListByReservations(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Tickets = byRes[out[i].ID]
		if out[i].Tickets == nil {
			out[i].Tickets = []model.Ticket{}
		}
	}
	return out, total, nil
}

// DeleteForUser removes the reservation; its tickets go with it through
// the foreign key cascade.
func (r *ReservationRepo) DeleteForUser(ctx context.Context, id, userID uint64) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM reservations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
