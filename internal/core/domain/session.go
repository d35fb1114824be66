package domain

import "time"

// Session represents a refresh-token session. The raw refresh token is never
// persisted; only its SHA-256 hash is stored, and rotation replaces the hash
// and expiry in place so the previous token becomes invalid immediately.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	UserAgent        *string
	IPAddress        *string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
}

// IsActive reports whether the session is usable at the provided instant.
func (s Session) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
