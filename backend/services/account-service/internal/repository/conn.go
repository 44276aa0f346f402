package repository

import (
	"context"
	"database/sql"
	"time"
)

const defaultQueryTimeout = 5 * time.Second

// conn bounds every statement of a repository by the configured timeout.
type conn struct {
	db      *sql.DB
	timeout time.Duration
}

func newConn(db *sql.DB, timeout time.Duration) conn {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return conn{db: db, timeout: timeout}
}

func (c conn) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}
