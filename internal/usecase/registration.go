package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/repository"
)

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrNameRequired indicates the display name is missing.
	ErrNameRequired = errors.New("name is required")
	// ErrEmailRequired indicates the email is missing.
	ErrEmailRequired = errors.New("email is required")
)

// RegistrationService handles new account onboarding. Registration auto-logs
// the user in: it returns a token pair alongside the created user.
type RegistrationService struct {
	users     port.UserRepository
	validator *security.PasswordValidator
	verifier  *VerificationService
	auth      *AuthService
	now       func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(users port.UserRepository, validator *security.PasswordValidator, verifier *VerificationService, auth *AuthService) *RegistrationService {
	return &RegistrationService{
		users:     users,
		validator: validator,
		verifier:  verifier,
		auth:      auth,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register creates the account, queues the verification email, and opens the
// first session.
func (s *RegistrationService) Register(ctx context.Context, name, email, password string, meta SessionMetadata) (TokenPair, *domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return TokenPair{}, nil, ErrNameRequired
	}
	if email == "" {
		return TokenPair{}, nil, ErrEmailRequired
	}

	if err := s.validator.Validate(password); err != nil {
		return TokenPair{}, nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return TokenPair{}, nil, ErrEmailTaken
		}
		return TokenPair{}, nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.verifier.Issue(ctx, user); err != nil {
		return TokenPair{}, nil, fmt.Errorf("issue verification token: %w", err)
	}

	pair, err := s.auth.StartSession(ctx, user, meta)
	if err != nil {
		return TokenPair{}, nil, err
	}

	sanitized := user
	sanitized.PasswordHash = ""
	return pair, &sanitized, nil
}
