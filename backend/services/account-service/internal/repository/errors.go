package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUserNotFound represents missing user rows.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the username unique index rejects a row.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrPlantNotFound represents missing plant rows.
	ErrPlantNotFound = errors.New("plant not found")
	// ErrUnknownReference is returned when a row points at a missing user or plant.
	ErrUnknownReference = errors.New("referenced user or plant does not exist")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
