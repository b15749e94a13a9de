// Package migrations applies the embedded schema with golang-migrate.
// MySQL is the production store; the sqlite files mirror it for tests.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed mysql/*.sql sqlite/*.sql
var files embed.FS

const (
	MySQL  = "mysql"
	SQLite = "sqlite"
)

// Runner wraps a migrate instance bound to an open *sql.DB.
type Runner struct {
	migrator *migrate.Migrate
}

// NewRunner prepares migrations for dialect over db. The migrator must not
// be closed through migrate's own Close because that closes db as well.
func NewRunner(db *sql.DB, dialect string) (*Runner, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dialect {
	case MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case SQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s migration driver: %w", dialect, err)
	}

	src, err := iofs.New(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &Runner{migrator: m}, nil
}

// Up applies every pending migration. A dirty version is forced back to
// its recorded number first so a crashed deploy can be retried.
func (r *Runner) Up() error {
	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("fix dirty migration %d: %w", version, err)
		}
	}
	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down rolls back every migration.
func (r *Runner) Down() error {
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version, 0 when none.
func (r *Runner) Version() (uint, error) {
	v, _, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	return v, err
}

// Apply is the common startup path: build a runner and migrate up.
func Apply(db *sql.DB, dialect string) (uint, error) {
	r, err := NewRunner(db, dialect)
	if err != nil {
		return 0, err
	}
	if err := r.Up(); err != nil {
		return 0, err
	}
	return r.Version()
}
