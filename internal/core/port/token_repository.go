package port

import (
	"context"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
)

// TokenRepository manages the single-use action token records.
type TokenRepository interface {
	Create(ctx context.Context, token domain.ActionToken) error
	GetByHash(ctx context.Context, hash string, purpose domain.ActionTokenPurpose) (*domain.ActionToken, error)
	Consume(ctx context.Context, id string, usedAt time.Time) error
}
