package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/database"
	kafkainfra "github.com/ndavydov/account-service/internal/infra/kafka"
	"github.com/ndavydov/account-service/internal/infra/logger"
	"github.com/ndavydov/account-service/internal/infra/mail"
	postgresrepo "github.com/ndavydov/account-service/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() {
		_ = zapLog.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init postgres", zap.Error(err))
	}
	defer pool.Close()

	renderer, err := mail.NewRenderer(
		cfg.SMTP.VerifyURL,
		cfg.SMTP.ResetURL,
		cfg.Auth.VerificationTTL.String(),
		cfg.Auth.ResetTTL.String(),
	)
	if err != nil {
		zapLog.Fatal("failed to init mail renderer", zap.Error(err))
	}

	sender := mail.NewSMTPSender(cfg.SMTP, zapLog)
	deadLetters := postgresrepo.NewDeadLetterRepository(pool)

	consumer := kafkainfra.NewMailConsumer(renderer, sender, deadLetters, zapLog, kafkainfra.MailConsumerOptions{
		MaxAttempts:  cfg.Mail.MaxAttempts,
		RetryBackoff: cfg.Mail.RetryBackoff,
	})

	zapLog.Info("starting mail worker",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("consumer_group", cfg.Mail.ConsumerGroup),
	)

	if err := kafkainfra.RunMailConsumer(ctx, cfg.Kafka, cfg.Mail, consumer, zapLog); err != nil {
		zapLog.Error("mail worker stopped", zap.Error(err))
		os.Exit(1)
	}
}
