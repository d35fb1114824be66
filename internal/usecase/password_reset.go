package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/logger"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/repository"
)

// PasswordResetService manages the forgot-password flow.
type PasswordResetService struct {
	users      port.UserRepository
	tokens     port.TokenRepository
	mail       port.EmailEnqueuer
	transactor port.Transactor
	validator  *security.PasswordValidator
	ttl        time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewPasswordResetService constructs a password reset service.
func NewPasswordResetService(users port.UserRepository, tokens port.TokenRepository, mail port.EmailEnqueuer, transactor port.Transactor, validator *security.PasswordValidator, ttl time.Duration, log *zap.Logger) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordResetService{
		users:      users,
		tokens:     tokens,
		mail:       mail,
		transactor: transactor,
		validator:  validator,
		ttl:        ttl,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *PasswordResetService) WithClock(clock func() time.Time) *PasswordResetService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Request starts a reset for the given email. It always succeeds from the
// caller's view: unknown or inactive accounts are logged and skipped, never
// reported.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)),
			)
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	raw, err := security.GenerateSecureToken(actionTokenBytes)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := domain.ActionToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		Purpose:   domain.ActionTokenPasswordReset,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	job := domain.EmailJob{
		ID:          uuid.NewString(),
		Kind:        domain.EmailJobPasswordReset,
		Recipient:   user.Email,
		Name:        user.Name,
		Token:       raw,
		RequestedAt: now,
	}
	if err := s.mail.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue reset email: %w", err)
	}

	return nil
}

// Confirm consumes a reset token, stores the new password, and revokes every
// session of the user in one transaction. Any previously issued refresh token
// stops working the moment the reset commits.
func (s *PasswordResetService) Confirm(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return ErrInvalidActionToken
	}
	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	tokenHash := security.HashToken(rawToken)
	now := s.now()

	return s.transactor.WithinTx(ctx, func(repos port.TxRepositories) error {
		token, err := repos.Tokens.GetByHash(ctx, tokenHash, domain.ActionTokenPasswordReset)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidActionToken
			}
			return fmt.Errorf("lookup token: %w", err)
		}
		if !token.IsUsable(now) {
			return ErrInvalidActionToken
		}

		if err := repos.Tokens.Consume(ctx, token.ID, now); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidActionToken
			}
			return fmt.Errorf("consume token: %w", err)
		}

		if err := repos.Users.UpdatePassword(ctx, token.UserID, hash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		revoked, err := repos.Sessions.RevokeAllForUser(ctx, token.UserID, now)
		if err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}

		s.log.Info("password reset completed",
			zap.String("user_id", token.UserID),
			zap.Int("sessions_revoked", revoked),
		)
		return nil
	})
}
