package db

import (
	"context"
	"database/sql"
	"embed"

	libdb "greenhouse/backend/libs/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsTable = "account_schema_migrations"

// NewPostgres connects to Postgres using shared library helper.
func NewPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	return libdb.NewPostgresDB(ctx, dsn, libdb.PoolOptions{MaxOpenConns: 10})
}

// Migrate brings the users, plants and device registry schema up to date.
func Migrate(dsn string) (uint, error) {
	return libdb.Migrate(dsn, migrations, "migrations", migrationsTable)
}
