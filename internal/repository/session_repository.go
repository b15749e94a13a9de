package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// SessionFilter narrows List. Date keeps sessions whose show_time falls on
// that UTC calendar day.
type SessionFilter struct {
	ShowID uint64
	Date   *time.Time
}

// SessionRepo manages show sessions. Reads join the show title, the dome
// layout and the number of tickets sold.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionDetailSelect = `SELECT s.id, s.astronomy_show_id, s.planetarium_dome_id, s.show_time,
       a.title, d.name, d.total_rows, d.seats_in_row,
       (SELECT COUNT(*) FROM tickets t WHERE t.show_session_id = s.id) AS tickets_sold
  FROM show_sessions s
  JOIN astronomy_shows a ON a.id = s.astronomy_show_id
  JOIN planetarium_domes d ON d.id = s.planetarium_dome_id`

func scanSessionDetail(row interface{ Scan(...any) error }) (model.ShowSessionDetail, error) {
	var s model.ShowSessionDetail
	err := row.Scan(&s.ID, &s.AstronomyShowID, &s.DomeID, &s.ShowTime,
		&s.ShowTitle, &s.DomeName, &s.DomeRows, &s.DomeSeats, &s.TicketsSold)
	s.ShowTime = s.ShowTime.UTC()
	return s, err
}

// Create inserts a session. Unknown show or dome ids yield
// ErrInvalidReference.
func (r *SessionRepo) Create(ctx context.Context, s *model.ShowSession) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO show_sessions (astronomy_show_id, planetarium_dome_id, show_time) VALUES (?, ?, ?)`,
		s.AstronomyShowID, s.DomeID, s.ShowTime.UTC().Truncate(time.Second))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.ShowTime = s.ShowTime.UTC().Truncate(time.Second)
	return nil
}

// GetByID returns the session with its computed fields.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.ShowSessionDetail, error) {
	s, err := scanSessionDetail(database.Conn(ctx, r.db).QueryRowContext(ctx, sessionDetailSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Layout returns the dome a session takes place in.
func (r *SessionRepo) Layout(ctx context.Context, sessionID uint64) (model.PlanetariumDome, error) {
	var d model.PlanetariumDome
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT d.id, d.name, d.total_rows, d.seats_in_row
		   FROM show_sessions s JOIN planetarium_domes d ON d.id = s.planetarium_dome_id
		  WHERE s.id = ?`, sessionID).Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrSessionNotFound
	}
	return d, err
}

// Update moves the session to another show, dome or time.
func (r *SessionRepo) Update(ctx context.Context, s *model.ShowSession) error {
	if _, err := r.GetByID(ctx, s.ID); err != nil {
		return err
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE show_sessions SET astronomy_show_id = ?, planetarium_dome_id = ?, show_time = ? WHERE id = ?`,
		s.AstronomyShowID, s.DomeID, s.ShowTime.UTC().Truncate(time.Second), s.ID)
	if database.IsForeignKeyViolation(err) {
		return ErrInvalidReference
	}
	return err
}

// List returns one page of sessions ordered by show_time plus the total.
func (r *SessionRepo) List(ctx context.Context, f SessionFilter, p Page) ([]model.ShowSessionDetail, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ShowID != 0 {
		where = append(where, `s.astronomy_show_id = ?`)
		args = append(args, f.ShowID)
	}
	if f.Date != nil {
		start := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		where = append(where, `s.show_time >= ? AND s.show_time < ?`)
		args = append(args, start, start.AddDate(0, 0, 1))
	}
	cond := ""
	if len(where) > 0 {
		cond = ` WHERE ` + strings.Join(where, ` AND `)
	}

	conn := database.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM show_sessions s`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx, sessionDetailSelect+cond+` ORDER BY s.show_time, s.id LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.ShowSessionDetail{}
	for rows.Next() {
		s, err := scanSessionDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}
