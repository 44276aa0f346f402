package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies every pending up migration found in dir of fsys. Each
// service passes its own migrations table so several services can share one
// database. The migration runs on a dedicated connection because the
// migrate driver closes the pool it was given.
func Migrate(dsn string, fsys fs.FS, dir, table string) (uint, error) {
	if dsn == "" {
		return 0, ErrEmptyDSN
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("db: open migrations: %w", err)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("db: open migration connection: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(conn, &pgxmigrate.Config{MigrationsTable: table})
	if err != nil {
		conn.Close()
		return 0, fmt.Errorf("db: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		driver.Close()
		return 0, fmt.Errorf("db: migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("db: migrate up: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("db: migration version: %w", err)
	}
	return version, nil
}
