package models

import "time"

// User is a registered account. Password holds the stored credential as
// produced by the configured password scheme.
type User struct {
	ID        int64
	Username  string
	Password  string
	CreatedAt time.Time
}
