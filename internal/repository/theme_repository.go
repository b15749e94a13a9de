package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// ThemeRepo persists show themes and their show links.
type ThemeRepo struct {
	db *sql.DB
}

func NewThemeRepo(db *sql.DB) *ThemeRepo { return &ThemeRepo{db: db} }

// Create inserts the theme and links it to t.Shows in one transaction.
func (r *ThemeRepo) Create(ctx context.Context, t *model.ShowTheme) error {
	var id int64
	err := database.WithTx(ctx, r.db, func(ctx context.Context) error {
		res, err := database.Conn(ctx, r.db).ExecContext(ctx, `INSERT INTO show_themes (name) VALUES (?)`, t.Name)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return r.replaceShows(ctx, uint64(id), t.Shows)
	})
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// GetByID returns ErrThemeNotFound when the theme does not exist.
func (r *ThemeRepo) GetByID(ctx context.Context, id uint64) (*model.ShowTheme, error) {
	t := model.ShowTheme{Shows: []uint64{}}
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT id, name FROM show_themes WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThemeNotFound
	}
	if err != nil {
		return nil, err
	}
	themes := []model.ShowTheme{t}
	if err := r.attachShows(ctx, themes); err != nil {
		return nil, err
	}
	return &themes[0], nil
}

// Update renames the theme and replaces its show links.
func (r *ThemeRepo) Update(ctx context.Context, t *model.ShowTheme) error {
	err := database.WithTx(ctx, r.db, func(ctx context.Context) error {
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
		if _, err := database.Conn(ctx, r.db).ExecContext(ctx, `UPDATE show_themes SET name = ? WHERE id = ?`, t.Name, t.ID); err != nil {
			return err
		}
		return r.replaceShows(ctx, t.ID, t.Shows)
	})
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// List returns one page of themes ordered by id plus the total count.
func (r *ThemeRepo) List(ctx context.Context, p Page) ([]model.ShowTheme, int, error) {
	conn := database.Conn(ctx, r.db)
	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM show_themes`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT id, name FROM show_themes ORDER BY id LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.ShowTheme{}
	for rows.Next() {
		t := model.ShowTheme{Shows: []uint64{}}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	if err := r.attachShows(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *ThemeRepo) replaceShows(ctx context.Context, themeID uint64, showIDs []uint64) error {
	conn := database.Conn(ctx, r.db)
	if _, err := conn.ExecContext(ctx, `DELETE FROM show_theme_shows WHERE show_theme_id = ?`, themeID); err != nil {
		return err
	}
	seen := map[uint64]bool{}
	for _, sid := range showIDs {
		if seen[sid] {
			continue
		}
		seen[sid] = true
		if _, err := conn.ExecContext(ctx, `INSERT INTO show_theme_shows (show_theme_id, astronomy_show_id) VALUES (?, ?)`, themeID, sid); err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrInvalidReference
			}
			return err
		}
	}
	return nil
}

func (r *ThemeRepo) attachShows(ctx context.Context, themes []model.ShowTheme) error {
	if len(themes) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(themes))
	ids := make([]uint64, len(themes))
	for i, t := range themes {
		idx[t.ID] = i
		ids[i] = t.ID
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT show_theme_id, astronomy_show_id FROM show_theme_shows WHERE show_theme_id IN (`+placeholders(len(ids))+`) ORDER BY astronomy_show_id`,
		idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var themeID, showID uint64
		if err := rows.Scan(&themeID, &showID); err != nil {
			return err
		}
		i := idx[themeID]
		themes[i].Shows = append(themes[i].Shows, showID)
	}
	return rows.Err()
}
