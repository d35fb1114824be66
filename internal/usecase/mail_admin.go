package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/repository"
)

const (
	defaultDeadLetterPageSize = 50
	maxDeadLetterPageSize     = 200
)

// ErrDeadLetterNotFound indicates the dead letter no longer exists.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// MailAdminService exposes the dead-letter area: failed email jobs can be
// listed, retried, or purged after a retention window.
type MailAdminService struct {
	deadLetters port.DeadLetterRepository
	mail        port.EmailEnqueuer
	retention   time.Duration
	now         func() time.Time
}

// NewMailAdminService constructs a mail admin service.
func NewMailAdminService(deadLetters port.DeadLetterRepository, mail port.EmailEnqueuer, retention time.Duration) *MailAdminService {
	return &MailAdminService{
		deadLetters: deadLetters,
		mail:        mail,
		retention:   retention,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *MailAdminService) WithClock(clock func() time.Time) *MailAdminService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// List returns dead letters, most recent failures first.
func (s *MailAdminService) List(ctx context.Context, limit, offset int) ([]domain.MailDeadLetter, error) {
	if limit <= 0 {
		limit = defaultDeadLetterPageSize
	}
	if limit > maxDeadLetterPageSize {
		limit = maxDeadLetterPageSize
	}
	if offset < 0 {
		offset = 0
	}

	letters, err := s.deadLetters.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	return letters, nil
}

// Retry re-enqueues the stored job and removes the dead letter once the job
// is back on the queue.
func (s *MailAdminService) Retry(ctx context.Context, id string) error {
	letter, err := s.deadLetters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrDeadLetterNotFound
		}
		return fmt.Errorf("lookup dead letter: %w", err)
	}

	if err := s.mail.Enqueue(ctx, letter.Job); err != nil {
		return fmt.Errorf("re-enqueue job: %w", err)
	}

	if err := s.deadLetters.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete dead letter: %w", err)
	}

	return nil
}

// Purge removes dead letters older than the retention window and reports how
// many were removed.
func (s *MailAdminService) Purge(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	count, err := s.deadLetters.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}
	return count, nil
}
