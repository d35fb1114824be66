package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
)

func newDeadLetter(id string, failedAt time.Time) domain.MailDeadLetter {
	return domain.MailDeadLetter{
		ID: id,
		Job: domain.EmailJob{
			ID:        "job-" + id,
			Kind:      domain.EmailJobVerification,
			Recipient: "ada@example.com",
			Token:     "tok-" + id,
		},
		Attempts:  5,
		LastError: "smtp: connection refused",
		FailedAt:  failedAt,
	}
}

func TestMailAdminRetry(t *testing.T) {
	failedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newMemDeadLetters(newDeadLetter("dl-1", failedAt))
	enqueuer := &memEnqueuer{}
	svc := NewMailAdminService(repo, enqueuer, 30*24*time.Hour)

	if err := svc.Retry(context.Background(), "dl-1"); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}

	if len(enqueuer.jobs) != 1 {
		t.Fatalf("expected 1 re-enqueued job, got %d", len(enqueuer.jobs))
	}
	if enqueuer.jobs[0].ID != "job-dl-1" {
		t.Fatalf("expected the stored job re-enqueued, got %s", enqueuer.jobs[0].ID)
	}
	if _, ok := repo.byID["dl-1"]; ok {
		t.Fatal("expected dead letter removed after retry")
	}
}

func TestMailAdminRetryMissing(t *testing.T) {
	svc := NewMailAdminService(newMemDeadLetters(), &memEnqueuer{}, 30*24*time.Hour)

	if err := svc.Retry(context.Background(), "ghost"); !errors.Is(err, ErrDeadLetterNotFound) {
		t.Fatalf("expected ErrDeadLetterNotFound, got %v", err)
	}
}

func TestMailAdminRetryEnqueueFailureKeepsLetter(t *testing.T) {
	failedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newMemDeadLetters(newDeadLetter("dl-1", failedAt))
	enqueuer := &memEnqueuer{err: errors.New("broker down")}
	svc := NewMailAdminService(repo, enqueuer, 30*24*time.Hour)

	if err := svc.Retry(context.Background(), "dl-1"); err == nil {
		t.Fatal("expected error when re-enqueue fails")
	}
	if _, ok := repo.byID["dl-1"]; !ok {
		t.Fatal("dead letter must survive a failed re-enqueue")
	}
}

func TestMailAdminPurge(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := newMemDeadLetters(
		newDeadLetter("old-1", now.Add(-40*24*time.Hour)),
		newDeadLetter("old-2", now.Add(-31*24*time.Hour)),
		newDeadLetter("fresh", now.Add(-2*24*time.Hour)),
	)
	svc := NewMailAdminService(repo, &memEnqueuer{}, 30*24*time.Hour).
		WithClock(func() time.Time { return now })

	count, err := svc.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 purged, got %d", count)
	}
	if _, ok := repo.byID["fresh"]; !ok {
		t.Fatal("expected recent dead letter retained")
	}
}
