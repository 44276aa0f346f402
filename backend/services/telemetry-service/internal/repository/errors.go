package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStorageUnavailable covers connection, timeout and transaction failures.
	ErrStorageUnavailable = errors.New("storage: unavailable")
	// ErrConstraintViolation is returned when the database rejects a row.
	ErrConstraintViolation = errors.New("storage: constraint violation")
	// ErrInvalidArgument is returned for arguments rejected before reaching the database.
	ErrInvalidArgument = errors.New("storage: invalid argument")
)

// integrity_constraint_violation class, see PostgreSQL appendix A.
const integrityViolationClass = "23"

// classify maps a driver error onto the storage error kinds. The original
// error stays in the chain for callers that need the details.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == integrityViolationClass {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
