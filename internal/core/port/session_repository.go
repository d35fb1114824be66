package port

import (
	"context"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
)

// SessionRepository deals with refresh-token session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)

	// Rotate replaces the session's token hash and expiry in one conditional
	// update keyed on the previous hash. It returns repository.ErrNotFound
	// when the session no longer carries oldHash (already rotated or
	// revoked), which makes concurrent refreshes of the same token a
	// first-writer-wins race.
	Rotate(ctx context.Context, sessionID string, oldHash, newHash string, expiresAt time.Time) error

	Revoke(ctx context.Context, sessionID string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error)
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
}
