package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/repository"
)

// SessionService handles logout and session visibility.
type SessionService struct {
	sessions port.SessionRepository
	now      func() time.Time
}

// NewSessionService constructs a session service.
func NewSessionService(sessions port.SessionRepository) *SessionService {
	return &SessionService{
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Logout revokes the session holding the supplied refresh token. The access
// token paired with it stays valid until natural expiry; logout is
// session-scoped revocation, not an access-token blacklist.
func (s *SessionService) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return ErrInvalidRefreshToken
	}

	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(rawRefreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	if session.RevokedAt != nil {
		return ErrInvalidRefreshToken
	}

	if err := s.sessions.Revoke(ctx, session.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeAll signs the user out of every device and reports how many sessions
// were revoked.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) (int, error) {
	count, err := s.sessions.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return count, nil
}

// ListActive returns the user's live sessions for display.
func (s *SessionService) ListActive(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	// Token hashes are server-side secrets and never leave the service.
	for i := range sessions {
		sessions[i].RefreshTokenHash = ""
	}
	return sessions, nil
}
