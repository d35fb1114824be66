package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/repository"
)

// actionTokenBytes is the entropy of raw verification and reset tokens.
const actionTokenBytes = 32

// ErrInvalidActionToken indicates a verification or reset token that is
// unknown, expired, or already used. The three cases are deliberately not
// distinguished to the caller.
var ErrInvalidActionToken = errors.New("invalid or expired token")

// VerificationService manages email-verification tokens.
type VerificationService struct {
	users      port.UserRepository
	tokens     port.TokenRepository
	mail       port.EmailEnqueuer
	transactor port.Transactor
	ttl        time.Duration
	now        func() time.Time
}

// NewVerificationService constructs a verification service.
func NewVerificationService(users port.UserRepository, tokens port.TokenRepository, mail port.EmailEnqueuer, transactor port.Transactor, ttl time.Duration) *VerificationService {
	return &VerificationService{
		users:      users,
		tokens:     tokens,
		mail:       mail,
		transactor: transactor,
		ttl:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *VerificationService) WithClock(clock func() time.Time) *VerificationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Issue generates a verification token for the user, stores its hash, and
// queues the email carrying the raw token.
func (s *VerificationService) Issue(ctx context.Context, user domain.User) error {
	raw, err := security.GenerateSecureToken(actionTokenBytes)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	token := domain.ActionToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		Purpose:   domain.ActionTokenEmailVerification,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	job := domain.EmailJob{
		ID:          uuid.NewString(),
		Kind:        domain.EmailJobVerification,
		Recipient:   user.Email,
		Name:        user.Name,
		Token:       raw,
		RequestedAt: now,
	}
	if err := s.mail.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue verification email: %w", err)
	}

	return nil
}

// Resend issues a fresh verification token for the authenticated user. It
// silently no-ops when the user is unknown or already verified, so the
// response never confirms account state.
func (s *VerificationService) Resend(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.IsVerified() {
		return nil
	}

	return s.Issue(ctx, *user)
}

// Confirm consumes a verification token and marks the email verified. The
// token consumption and the user update commit together; a failure of either
// leaves the token unused.
func (s *VerificationService) Confirm(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return ErrInvalidActionToken
	}

	hash := security.HashToken(rawToken)
	now := s.now()

	err := s.transactor.WithinTx(ctx, func(repos port.TxRepositories) error {
		token, err := repos.Tokens.GetByHash(ctx, hash, domain.ActionTokenEmailVerification)
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

		if err := repos.Users.MarkEmailVerified(ctx, token.UserID, now); err != nil {
			return fmt.Errorf("mark email verified: %w", err)
		}

		return nil
	})

	return err
}
