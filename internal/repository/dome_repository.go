package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// DomeRepo manages planetarium domes. The seating layout lives in the
// total_rows and seats_in_row columns.
type DomeRepo struct {
	db *sql.DB
}

func NewDomeRepo(db *sql.DB) *DomeRepo { return &DomeRepo{db: db} }

const domeColumns = `id, name, total_rows, seats_in_row, image`

func scanDome(row interface{ Scan(...any) error }) (model.PlanetariumDome, error) {
	var (
		d     model.PlanetariumDome
		image sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Rows, &d.SeatsInRow, &image); err != nil {
		return d, err
	}
	if image.Valid {
		d.Image = &image.String
	}
	return d, nil
}

// Create inserts d and sets its id.
func (r *DomeRepo) Create(ctx context.Context, d *model.PlanetariumDome) error {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO planetarium_domes (name, total_rows, seats_in_row, image) VALUES (?, ?, ?, ?)`,
		d.Name, d.Rows, d.SeatsInRow, nullableString(d.Image))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

// GetByID returns ErrDomeNotFound when no dome has the id.
func (r *DomeRepo) GetByID(ctx context.Context, id uint64) (*model.PlanetariumDome, error) {
	d, err := scanDome(database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+domeColumns+` FROM planetarium_domes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDomeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Update overwrites name and layout. The image is managed by SetImage.
func (r *DomeRepo) Update(ctx context.Context, d *model.PlanetariumDome) error {
	if _, err := r.GetByID(ctx, d.ID); err != nil {
		return err
	}
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE planetarium_domes SET name = ?, total_rows = ?, seats_in_row = ? WHERE id = ?`,
		d.Name, d.Rows, d.SeatsInRow, d.ID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	*d = *got
	return nil
}

// SetImage stores the relative media path of the dome's photo.
func (r *DomeRepo) SetImage(ctx context.Context, id uint64, path string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE planetarium_domes SET image = ? WHERE id = ?`, path, id)
	return err
}

// List returns one page of domes ordered by id and the total count.
func (r *DomeRepo) List(ctx context.Context, p Page) ([]model.PlanetariumDome, int, error) {
	conn := database.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM planetarium_domes`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+domeColumns+` FROM planetarium_domes ORDER BY id LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.PlanetariumDome{}
	for rows.Next() {
		d, err := scanDome(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
