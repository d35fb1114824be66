package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/ndavydov/account-service/internal/core/domain"
)

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(job domain.EmailJob) (string, string, error) {
	if r.err != nil {
		return "", "", r.err
	}
	return "subject for " + string(job.Kind), "<p>body</p>", nil
}

type fakeSender struct {
	failures int
	calls    int
	lastTo   string
}

func (s *fakeSender) Send(_ context.Context, to, _, _ string) error {
	s.calls++
	s.lastTo = to
	if s.calls <= s.failures {
		return fmt.Errorf("smtp unavailable (attempt %d)", s.calls)
	}
	return nil
}

type fakeDeadLetterRepo struct {
	created []domain.MailDeadLetter
	err     error
}

func (r *fakeDeadLetterRepo) Create(_ context.Context, letter domain.MailDeadLetter) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, letter)
	return nil
}

func (r *fakeDeadLetterRepo) GetByID(context.Context, string) (*domain.MailDeadLetter, error) {
	return nil, errors.New("unexpected call to GetByID")
}

func (r *fakeDeadLetterRepo) List(context.Context, int, int) ([]domain.MailDeadLetter, error) {
	return nil, errors.New("unexpected call to List")
}

func (r *fakeDeadLetterRepo) Delete(context.Context, string) error {
	return errors.New("unexpected call to Delete")
}

func (r *fakeDeadLetterRepo) PurgeOlderThan(context.Context, time.Time) (int, error) {
	return 0, errors.New("unexpected call to PurgeOlderThan")
}

func newTestConsumer(t *testing.T, renderer *fakeRenderer, sender *fakeSender, repo *fakeDeadLetterRepo, maxAttempts int) *MailConsumer {
	t.Helper()
	consumer := NewMailConsumer(renderer, sender, repo, zaptest.NewLogger(t), MailConsumerOptions{
		MaxAttempts:  maxAttempts,
		RetryBackoff: time.Second,
	})
	consumer.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})
	consumer.WithSleep(func(context.Context, time.Duration) error { return nil })
	return consumer
}

func testJob() domain.EmailJob {
	return domain.EmailJob{
		ID:          "job-1",
		Kind:        domain.EmailJobVerification,
		Recipient:   "user@example.com",
		Name:        "Ada",
		Token:       "raw-token",
		RequestedAt: time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC),
	}
}

func TestMailConsumerDeliversFirstAttempt(t *testing.T) {
	sender := &fakeSender{}
	repo := &fakeDeadLetterRepo{}
	consumer := newTestConsumer(t, &fakeRenderer{}, sender, repo, 3)

	if err := consumer.HandleJob(context.Background(), testJob()); err != nil {
		t.Fatalf("HandleJob returned error: %v", err)
	}

	if sender.calls != 1 {
		t.Fatalf("expected 1 send attempt, got %d", sender.calls)
	}
	if sender.lastTo != "user@example.com" {
		t.Fatalf("unexpected recipient: %s", sender.lastTo)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no dead letters, got %d", len(repo.created))
	}
}

func TestMailConsumerRetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2}
	repo := &fakeDeadLetterRepo{}
	consumer := newTestConsumer(t, &fakeRenderer{}, sender, repo, 5)

	if err := consumer.HandleJob(context.Background(), testJob()); err != nil {
		t.Fatalf("HandleJob returned error: %v", err)
	}

	if sender.calls != 3 {
		t.Fatalf("expected 3 send attempts, got %d", sender.calls)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no dead letters, got %d", len(repo.created))
	}
}

func TestMailConsumerDeadLettersAfterExhaustion(t *testing.T) {
	sender := &fakeSender{failures: 10}
	repo := &fakeDeadLetterRepo{}
	consumer := newTestConsumer(t, &fakeRenderer{}, sender, repo, 3)

	if err := consumer.HandleJob(context.Background(), testJob()); err != nil {
		t.Fatalf("HandleJob returned error: %v", err)
	}

	if sender.calls != 3 {
		t.Fatalf("expected 3 send attempts, got %d", sender.calls)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(repo.created))
	}

	letter := repo.created[0]
	if letter.Job.ID != "job-1" {
		t.Fatalf("unexpected job id in dead letter: %s", letter.Job.ID)
	}
	if letter.Attempts != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", letter.Attempts)
	}
	if letter.LastError == "" {
		t.Fatal("expected last error to be recorded")
	}
	if !letter.FailedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected failed_at: %v", letter.FailedAt)
	}
}

func TestMailConsumerDeadLettersRenderFailure(t *testing.T) {
	sender := &fakeSender{}
	repo := &fakeDeadLetterRepo{}
	consumer := newTestConsumer(t, &fakeRenderer{err: errors.New("unknown kind")}, sender, repo, 3)

	if err := consumer.HandleJob(context.Background(), testJob()); err != nil {
		t.Fatalf("HandleJob returned error: %v", err)
	}

	if sender.calls != 0 {
		t.Fatalf("expected no send attempts, got %d", sender.calls)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(repo.created))
	}
}

func TestMailConsumerPropagatesDeadLetterStoreFailure(t *testing.T) {
	sender := &fakeSender{failures: 10}
	repo := &fakeDeadLetterRepo{err: errors.New("db down")}
	consumer := newTestConsumer(t, &fakeRenderer{}, sender, repo, 2)

	if err := consumer.HandleJob(context.Background(), testJob()); err == nil {
		t.Fatal("expected error when dead letter store fails")
	}
}

func TestMailConsumerHandleMessageDecodesJob(t *testing.T) {
	sender := &fakeSender{}
	repo := &fakeDeadLetterRepo{}
	consumer := newTestConsumer(t, &fakeRenderer{}, sender, repo, 3)

	payload, err := json.Marshal(testJob())
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}

	msg := &sarama.ConsumerMessage{Topic: "account.mail.jobs", Value: payload}
	if err := consumer.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	if sender.calls != 1 {
		t.Fatalf("expected 1 send attempt, got %d", sender.calls)
	}
}

func TestMailConsumerHandleMessageUndecodable(t *testing.T) {
	sender := &fakeSender{}
	repo := &fakeDeadLetterRepo{}
	consumer := newTestConsumer(t, &fakeRenderer{}, sender, repo, 3)

	msg := &sarama.ConsumerMessage{Topic: "account.mail.jobs", Value: []byte("not-json")}
	if err := consumer.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	if sender.calls != 0 {
		t.Fatalf("expected no send attempts, got %d", sender.calls)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 dead letter for undecodable message, got %d", len(repo.created))
	}
}
