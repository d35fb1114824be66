package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/repository"
)

// ErrUserNotFound indicates the requested user record no longer exists.
var ErrUserNotFound = errors.New("user not found")

// UserService exposes profile reads and updates.
type UserService struct {
	users port.UserRepository
	now   func() time.Time
}

// NewUserService constructs a user service.
func NewUserService(users port.UserRepository) *UserService {
	return &UserService{
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *UserService) WithClock(clock func() time.Time) *UserService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Profile returns the user's record without the credential hash.
func (s *UserService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// UpdateName changes the display name and returns the updated profile.
func (s *UserService) UpdateName(ctx context.Context, userID, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if err := s.users.UpdateName(ctx, userID, name, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update name: %w", err)
	}

	return s.Profile(ctx, userID)
}
