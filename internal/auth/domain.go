package auth

import "time"

// User holds the credential fields needed to authenticate an account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
}

// SessionRecord mirrors a row of user_sessions. The Redis session holds the
// state; the row exists so expired logins can be pruned and listed.
type SessionRecord struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
