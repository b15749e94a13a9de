// Package testutil opens migrated in-memory databases and inserts fixtures
// for package tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/planetarium-reservation/internal/database/migrations"
)

// Password is the plain password of every user created by CreateUser.
const Password = "s3cret-pass"

// NewDB returns an in-memory SQLite database with the schema applied and
// foreign keys enforced. One connection only: every pooled connection to
// ":memory:" would otherwise be a separate empty database.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)
	_, err = migrations.Apply(db, migrations.SQLite)
	require.NoError(t, err)
	return db
}

func insert(t testing.TB, db *sql.DB, query string, args ...any) uint64 {
	t.Helper()
	res, err := db.ExecContext(context.Background(), query, args...)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// CreateUser inserts a user whose password is Password.
func CreateUser(t testing.TB, db *sql.DB, email string, staff bool) uint64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	return insert(t, db, `INSERT INTO users (email, password_hash, is_staff, is_active, created_at) VALUES (?,?,?,?,?)`,
		email, string(hash), staff, true, time.Now().UTC().Truncate(time.Second))
}

func CreateShow(t testing.TB, db *sql.DB, title string) uint64 {
	t.Helper()
	return insert(t, db, `INSERT INTO astronomy_shows (title, description) VALUES (?,?)`, title, title+" description")
}

func CreateTheme(t testing.TB, db *sql.DB, name string, showIDs ...uint64) uint64 {
	t.Helper()
	id := insert(t, db, `INSERT INTO show_themes (name) VALUES (?)`, name)
	for _, sid := range showIDs {
		insert(t, db, `INSERT INTO show_theme_shows (show_theme_id, astronomy_show_id) VALUES (?,?)`, id, sid)
	}
	return id
}

func CreateDome(t testing.TB, db *sql.DB, name string, rows, seatsInRow int) uint64 {
	t.Helper()
	return insert(t, db, `INSERT INTO planetarium_domes (name, total_rows, seats_in_row) VALUES (?,?,?)`, name, rows, seatsInRow)
}

func CreateSession(t testing.TB, db *sql.DB, showID, domeID uint64, at time.Time) uint64 {
	t.Helper()
	return insert(t, db, `INSERT INTO show_sessions (astronomy_show_id, planetarium_dome_id, show_time) VALUES (?,?,?)`,
		showID, domeID, at.UTC().Truncate(time.Second))
}

// CreateReservation inserts a reservation for userID holding one ticket per
// [row, seat] pair in sessionID.
func CreateReservation(t testing.TB, db *sql.DB, userID, sessionID uint64, seats ...[2]int) uint64 {
	t.Helper()
	id := insert(t, db, `INSERT INTO reservations (user_id, created_at) VALUES (?,?)`, userID, time.Now().UTC().Truncate(time.Second))
	for _, s := range seats {
		insert(t, db, `INSERT INTO tickets (row_no, seat_no, show_session_id, reservation_id) VALUES (?,?,?,?)`, s[0], s[1], sessionID, id)
	}
	return id
}

// Count returns the number of rows in table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

// Day returns 18:30 UTC on the n-th day after 1 March 2030.
func Day(n int) time.Time {
	return time.Date(2030, time.March, 1+n, 18, 30, 0, 0, time.UTC)
}
