package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"greenhouse/backend/services/account-service/internal/models"
)

// UserRepository handles CRUD for users table.
type UserRepository struct {
	conn
}

// NewUserRepository returns repository instance.
func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{conn: newConn(db, timeout)}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	user.Username = strings.TrimSpace(user.Username)
	const query = `
		INSERT INTO users (username, password)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Password).
		Scan(&user.ID, &user.CreatedAt)
	if pgCode(err) == uniqueViolation {
		return fmt.Errorf("create user %q: %w", user.Username, ErrUsernameTaken)
	}
	return err
}

// GetByUsername fetches a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `
		SELECT id, username, password, created_at
		FROM users
		WHERE username = $1
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(username))
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
