package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// ShowFilter narrows List. Title matches case-insensitively as a substring;
// ThemeIDs keeps shows linked to any of the given themes.
type ShowFilter struct {
	Title    string
	ThemeIDs []uint64
}

// ShowRepo manages persistence for astronomy shows.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

const showColumns = `id, title, description, image`

func scanShow(row interface{ Scan(...any) error }) (model.AstronomyShow, error) {
	var (
		s     model.AstronomyShow
		image sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Title, &s.Description, &image); err != nil {
		return s, err
	}
	if image.Valid {
		s.Image = &image.String
	}
	s.Themes = []uint64{}
	return s, nil
}

// Create inserts a show and reads it back.
func (r *ShowRepo) Create(ctx context.Context, s *model.AstronomyShow) error {
	conn := database.Conn(ctx, r.db)
	res, err := conn.ExecContext(ctx, `INSERT INTO astronomy_shows (title, description) VALUES (?, ?)`, s.Title, s.Description)
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
	*s = *got
	return nil
}

// GetByID retrieves a show with its theme ids. It returns ErrShowNotFound
// if there is no matching row.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.AstronomyShow, error) {
	conn := database.Conn(ctx, r.db)
	s, err := scanShow(conn.QueryRowContext(ctx, `SELECT `+showColumns+` FROM astronomy_shows WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	shows := []model.AstronomyShow{s}
	if err := r.attachThemes(ctx, shows); err != nil {
		return nil, err
	}
	return &shows[0], nil
}

// Update overwrites title and description.
func (r *ShowRepo) Update(ctx context.Context, s *model.AstronomyShow) error {
	if _, err := r.GetByID(ctx, s.ID); err != nil {
		return err
	}
	conn := database.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `UPDATE astronomy_shows SET title = ?, description = ? WHERE id = ?`, s.Title, s.Description, s.ID); err != nil {
		return err
	}
	got, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// SetImage stores the relative media path of the show's poster.
func (r *ShowRepo) SetImage(ctx context.Context, id uint64, path string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE astronomy_shows SET image = ? WHERE id = ?`, path, id)
	return err
}

// List returns one page of shows ordered by id plus the total match count.
func (r *ShowRepo) List(ctx context.Context, f ShowFilter, p Page) ([]model.AstronomyShow, int, error) {
	var (
		where []string
		args  []any
	)
	if t := strings.TrimSpace(f.Title); t != "" {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '!'`)
		args = append(args, containsPattern(strings.ToLower(t)))
	}
	if len(f.ThemeIDs) > 0 {
		where = append(where, `id IN (SELECT astronomy_show_id FROM show_theme_shows WHERE show_theme_id IN (`+placeholders(len(f.ThemeIDs))+`))`)
		args = append(args, idArgs(f.ThemeIDs)...)
	}
	cond := ""
	if len(where) > 0 {
		cond = ` WHERE ` + strings.Join(where, ` AND `)
	}

	conn := database.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM astronomy_shows`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT `+showColumns+` FROM astronomy_shows`+cond+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.AstronomyShow{}
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	if err := r.attachThemes(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MissingIDs returns the ids from ids that do not name a show.
func (r *ShowRepo) MissingIDs(ctx context.Context, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id FROM astronomy_shows WHERE id IN (`+placeholders(len(ids))+`)`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	found := map[uint64]bool{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []uint64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *ShowRepo) attachThemes(ctx context.Context, shows []model.AstronomyShow) error {
	if len(shows) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(shows))
	ids := make([]uint64, len(shows))
	for i, s := range shows {
		idx[s.ID] = i
		ids[i] = s.ID
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT astronomy_show_id, show_theme_id FROM show_theme_shows WHERE astronomy_show_id IN (`+placeholders(len(ids))+`) ORDER BY show_theme_id`,
		idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var showID, themeID uint64
		if err := rows.Scan(&showID, &themeID); err != nil {
			return err
		}
		i := idx[showID]
		shows[i].Themes = append(shows[i].Themes, themeID)
	}
	return rows.Err()
}
