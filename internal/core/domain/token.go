package domain

import "time"

// ActionTokenPurpose distinguishes the single-use token flows.
type ActionTokenPurpose string

const (
	ActionTokenEmailVerification ActionTokenPurpose = "email_verification"
	ActionTokenPasswordReset     ActionTokenPurpose = "password_reset"
)

// ActionToken is a single-use, expiring token authorizing an out-of-band
// action (email verification or password reset). The raw token is never
// persisted; only its hash is. UsedAt is set transactionally with the action
// it authorizes, and a used or expired token is permanently rejected.
type ActionToken struct {
	ID        string
	UserID    string
	TokenHash string
	Purpose   ActionTokenPurpose
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsUsable reports whether the token can still authorize its action.
func (t ActionToken) IsUsable(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
