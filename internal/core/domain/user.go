package domain

import "time"

// User mirrors the persisted representation in the users table.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	EmailVerifiedAt     *time.Time
	PasswordChangedAt   *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account is locked at the provided instant.
// A lock whose deadline has passed is treated as released (lazy unlock).
func (u User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// IsVerified reports whether the user's email address has been confirmed.
func (u User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}
