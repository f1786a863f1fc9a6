package users

import "time"

// User is a stored account.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Verified reports whether the account's email address has been confirmed.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil && !u.EmailVerifiedAt.IsZero()
}

// NewAccount carries the attributes used when an account has to be created.
type NewAccount struct {
	Name            string
	Email           string
	PasswordHash    string
	EmailVerifiedAt *time.Time
}
