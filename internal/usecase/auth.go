package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled indicates the account exists but is deactivated.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked indicates too many failed logins locked the account.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidRefreshToken indicates the refresh token is unknown, revoked,
	// expired, or already rotated.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidAccessToken indicates the access token is malformed or its signature check failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// AccountLockedError carries the lock deadline so the boundary can report it.
// The lock state is only revealed after password knowledge is proven.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// Is lets errors.Is(err, ErrAccountLocked) match the typed error.
func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// TokenPair bundles the credentials returned by login, registration, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionMetadata captures client attributes recorded on the session row.
type SessionMetadata struct {
	UserAgent *string
	IPAddress *string
}

// AuthService coordinates login, refresh rotation, and access-token checks.
type AuthService struct {
	authCfg  config.AuthSettings
	users    port.UserRepository
	sessions port.SessionRepository
	issuer   *security.TokenIssuer
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(authCfg config.AuthSettings, users port.UserRepository, sessions port.SessionRepository, issuer *security.TokenIssuer) *AuthService {
	return &AuthService{
		authCfg:  authCfg,
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login validates credentials and opens a new session.
//
// The order of checks is deliberate: the password is always verified first,
// against a dummy hash when the email is unknown, so the unknown-email and
// wrong-password paths are indistinguishable in both timing and response.
// Disabled and locked states are only reported once password knowledge is
// proven.
func (s *AuthService) Login(ctx context.Context, email, password string, meta SessionMetadata) (TokenPair, *domain.User, error) {
	if email == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if _, verr := security.VerifyPassword(password, security.DummyHash()); verr != nil {
				return TokenPair{}, nil, fmt.Errorf("verify dummy password: %w", verr)
			}
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		now := s.now()
		if _, err := s.users.RecordLoginFailure(ctx, user.ID, s.authCfg.MaxFailedLogins, now.Add(s.authCfg.LockoutDuration)); err != nil {
			return TokenPair{}, nil, fmt.Errorf("record login failure: %w", err)
		}
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	now := s.now()
	if !user.IsActive {
		return TokenPair{}, nil, ErrAccountDisabled
	}
	if user.IsLocked(now) {
		return TokenPair{}, nil, &AccountLockedError{Until: *user.LockedUntil}
	}

	// Expired locks release lazily here: a stale locked_until is simply
	// cleared along with the failure counter.
	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return TokenPair{}, nil, fmt.Errorf("record login success: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	pair, err := s.StartSession(ctx, *user, meta)
	if err != nil {
		return TokenPair{}, nil, err
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return pair, &sanitized, nil
}

// StartSession creates a session row and issues both tokens. It is shared by
// login and registration.
func (s *AuthService) StartSession(ctx context.Context, user domain.User, meta SessionMetadata) (TokenPair, error) {
	now := s.now()
	sessionID := uuid.NewString()

	refreshToken, err := s.issuer.IssueRefreshToken(user.ID, sessionID, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	accessToken, err := s.issuer.IssueAccessToken(user.ID, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	session := domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: security.HashToken(refreshToken),
		UserAgent:        meta.UserAgent,
		IPAddress:        meta.IPAddress,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.issuer.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return TokenPair{}, fmt.Errorf("create session: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates a refresh token. Each token is valid for exactly one
// refresh call: the session's hash is replaced conditionally on the old hash,
// so a stale token (stolen and reused after rotation) fails the same way an
// unknown token does.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (TokenPair, error) {
	claims, err := s.issuer.ParseRefreshToken(rawToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	oldHash := security.HashToken(rawToken)
	session, err := s.sessions.GetByTokenHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("lookup session: %w", err)
	}

	if session.UserID != claims.UserID || session.ID != claims.SessionID {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	now := s.now()
	if session.RevokedAt != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}
	if !session.ExpiresAt.After(now) {
		if err := s.sessions.Revoke(ctx, session.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("revoke expired session: %w", err)
		}
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	newRefresh, err := s.issuer.IssueRefreshToken(user.ID, session.ID, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.sessions.Rotate(ctx, session.ID, oldHash, security.HashToken(newRefresh), now.Add(s.issuer.RefreshTTL())); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent refresh won the conditional update.
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("rotate session: %w", err)
	}

	accessToken, err := s.issuer.IssueAccessToken(user.ID, now)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// AccessTTL reports the configured access token lifetime.
func (s *AuthService) AccessTTL() time.Duration {
	return s.issuer.AccessTTL()
}

// ParseAccessToken verifies an access token and returns its claims.
func (s *AuthService) ParseAccessToken(tokenString string) (*security.AccessTokenClaims, error) {
	claims, err := s.issuer.ParseAccessToken(tokenString)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
