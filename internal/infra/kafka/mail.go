package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/logger"
)

// MailJobsTopic is the logical topic for outbound email jobs. The producer
// prepends the configured topic prefix.
const MailJobsTopic = "mail.jobs"

// MailEnqueuer implements port.EmailEnqueuer using Kafka. Jobs are handed to
// the async producer; delivery failures surface on the producer error channel
// rather than blocking the request path.
type MailEnqueuer struct {
	producer *Producer
	logger   *zap.Logger
}

// NewMailEnqueuer constructs a Kafka-backed mail enqueuer.
func NewMailEnqueuer(producer *Producer, logger *zap.Logger) *MailEnqueuer {
	return &MailEnqueuer{producer: producer, logger: logger}
}

// Enqueue serializes the job and submits it to the producer input channel.
func (e *MailEnqueuer) Enqueue(ctx context.Context, job domain.EmailJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}

	bytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: e.producer.TopicName(MailJobsTopic),
		// Key by recipient so retries for one address stay ordered.
		Key:   sarama.StringEncoder(job.Recipient),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case e.producer.Producer().Input() <- message:
		e.logger.Debug("email job enqueued",
			zap.String("job_id", job.ID),
			zap.String("kind", string(job.Kind)),
			zap.String("recipient", logger.MaskEmail(job.Recipient)),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StubEnqueuer logs email jobs instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubEnqueuer struct {
	logger *zap.Logger
}

// NewStubEnqueuer constructs a development-friendly mail enqueuer.
func NewStubEnqueuer(logger *zap.Logger) *StubEnqueuer {
	return &StubEnqueuer{logger: logger}
}

// Enqueue logs the job. The raw token is omitted from the log line.
func (e *StubEnqueuer) Enqueue(_ context.Context, job domain.EmailJob) error {
	e.logger.Info("Stub email job enqueued",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("recipient", logger.MaskEmail(job.Recipient)),
		zap.Time("requested_at", job.RequestedAt),
	)
	return nil
}

var (
	_ port.EmailEnqueuer = (*MailEnqueuer)(nil)
	_ port.EmailEnqueuer = (*StubEnqueuer)(nil)
)
