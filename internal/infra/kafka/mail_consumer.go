package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/logger"
)

// MailConsumerOptions controls delivery retries for the mail worker.
type MailConsumerOptions struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// EmailRenderer produces the subject and body for an email job.
type EmailRenderer interface {
	Render(job domain.EmailJob) (subject, htmlBody string, err error)
}

// MailConsumer drains email jobs from the queue and delivers them through an
// EmailSender. Jobs that exhaust their attempts land in the dead-letter store
// and the offset is committed either way, so a poison message cannot wedge
// the partition.
type MailConsumer struct {
	renderer    EmailRenderer
	sender      port.EmailSender
	deadLetters port.DeadLetterRepository
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewMailConsumer constructs the consumer-group handler for the mail worker.
func NewMailConsumer(renderer EmailRenderer, sender port.EmailSender, deadLetters port.DeadLetterRepository, logger *zap.Logger, opts MailConsumerOptions) *MailConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	consumer := &MailConsumer{
		renderer:    renderer,
		sender:      sender,
		deadLetters: deadLetters,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
	}
	if consumer.maxAttempts <= 0 {
		consumer.maxAttempts = 5
	}
	if consumer.backoff <= 0 {
		consumer.backoff = 2 * time.Second
	}
	consumer.now = func() time.Time { return time.Now().UTC() }
	consumer.sleep = sleepContext
	return consumer
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *MailConsumer) WithClock(clock func() time.Time) *MailConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

// WithSleep overrides the retry delay function for deterministic testing.
func (c *MailConsumer) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *MailConsumer {
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *MailConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *MailConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages from a single partition claim.
func (c *MailConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg); err != nil {
				c.logger.Error("handle mail message failed",
					zap.Error(err),
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// HandleMessage decodes a queue message prior to processing. Undecodable
// messages are dead-lettered immediately since retrying cannot fix them.
func (c *MailConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var job domain.EmailJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return c.deadLetter(ctx, domain.EmailJob{ID: uuid.NewString()}, 0, fmt.Errorf("decode email job: %w", err))
	}

	return c.HandleJob(ctx, job)
}

// HandleJob attempts delivery with bounded retries and linear backoff between
// attempts. The returned error reflects the final outcome; dead-lettering a
// failed job counts as handled.
func (c *MailConsumer) HandleJob(ctx context.Context, job domain.EmailJob) error {
	subject, body, err := c.renderer.Render(job)
	if err != nil {
		return c.deadLetter(ctx, job, 0, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.sender.Send(ctx, job.Recipient, subject, body)
		if lastErr == nil {
			c.logger.Info("email delivered",
				zap.String("job_id", job.ID),
				zap.String("kind", string(job.Kind)),
				zap.String("recipient", logger.MaskEmail(job.Recipient)),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		c.logger.Warn("email delivery attempt failed",
			zap.Error(lastErr),
			zap.String("job_id", job.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		)

		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}

	return c.deadLetter(ctx, job, c.maxAttempts, lastErr)
}

func (c *MailConsumer) deadLetter(ctx context.Context, job domain.EmailJob, attempts int, cause error) error {
	letter := domain.MailDeadLetter{
		ID:        uuid.NewString(),
		Job:       job,
		Attempts:  attempts,
		LastError: cause.Error(),
		FailedAt:  c.now(),
	}

	if err := c.deadLetters.Create(ctx, letter); err != nil {
		return fmt.Errorf("store dead letter: %w (delivery error: %v)", err, cause)
	}

	c.logger.Error("email job dead-lettered",
		zap.String("job_id", job.ID),
		zap.String("dead_letter_id", letter.ID),
		zap.Int("attempts", attempts),
		zap.String("last_error", cause.Error()),
	)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunMailConsumer joins the consumer group and processes the mail topic until
// the context is cancelled.
func RunMailConsumer(ctx context.Context, kafkaCfg config.KafkaSettings, mailCfg config.MailSettings, handler *MailConsumer, log *zap.Logger) error {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(kafkaCfg.Brokers, mailCfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer group.Close()

	go func() {
		for err := range group.Errors() {
			log.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	topic := MailJobsTopic
	if kafkaCfg.TopicPrefix != "" {
		topic = fmt.Sprintf("%s.%s", kafkaCfg.TopicPrefix, MailJobsTopic)
	}

	for {
		if err := group.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume mail topic: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = (*MailConsumer)(nil)
