package port

import (
	"context"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
)

// EmailEnqueuer hands an email job to the asynchronous delivery queue.
// Implementations must not block the caller on broker round-trips.
type EmailEnqueuer interface {
	Enqueue(ctx context.Context, job domain.EmailJob) error
}

// EmailSender delivers a rendered message to a recipient.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// DeadLetterRepository stores email jobs that exhausted their delivery
// attempts.
type DeadLetterRepository interface {
	Create(ctx context.Context, letter domain.MailDeadLetter) error
	GetByID(ctx context.Context, id string) (*domain.MailDeadLetter, error)
	List(ctx context.Context, limit, offset int) ([]domain.MailDeadLetter, error)
	Delete(ctx context.Context, id string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
