package port

import (
	"context"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateName(ctx context.Context, id string, name string, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error

	// RecordLoginFailure increments the failure counter and, once the counter
	// reaches maxAttempts, sets the lock deadline. The increment and the
	// conditional lock are a single atomic update. It returns the new counter
	// value.
	RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockedUntil time.Time) (int, error)

	// RecordLoginSuccess resets the failure counter, clears any lock, and
	// stamps the last login time.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
}
