package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/database"
	kafkainfra "github.com/ndavydov/account-service/internal/infra/kafka"
	"github.com/ndavydov/account-service/internal/infra/logger"
	redisinfra "github.com/ndavydov/account-service/internal/infra/redis"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/infra/telemetry"
	postgresrepo "github.com/ndavydov/account-service/internal/repository/postgres"
	redisrepo "github.com/ndavydov/account-service/internal/repository/redis"
	"github.com/ndavydov/account-service/internal/transport/http/middleware"
	"github.com/ndavydov/account-service/internal/transport/http/routes"
	"github.com/ndavydov/account-service/internal/usecase"
)

// Application owns the API process: configuration, connections, and the
// HTTP server.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

// New wires the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	keyProvider, err := security.NewFileKeyProvider(cfg.JWT.KeyDirectory)
	if err != nil {
		return nil, fmt.Errorf("init key provider: %w", err)
	}
	issuer := security.NewTokenIssuer(keyProvider, cfg.App.Name, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	transactor := postgresrepo.NewTransactor(pool)

	var enqueuer port.EmailEnqueuer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub enqueuer", zap.Error(err))
			enqueuer = kafkainfra.NewStubEnqueuer(log)
		} else {
			enqueuer = kafkainfra.NewMailEnqueuer(producer, log)
			log.Info("kafka mail enqueuer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub enqueuer")
		enqueuer = kafkainfra.NewStubEnqueuer(log)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "accounts:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	passwordValidator := security.DefaultPasswordValidator(cfg.Auth.PasswordMinLength, cfg.Auth.PasswordMinScore)

	authService := usecase.NewAuthService(cfg.Auth, repos.Users, repos.Sessions, issuer)
	verificationService := usecase.NewVerificationService(repos.Users, repos.Tokens, enqueuer, transactor, cfg.Auth.VerificationTTL)
	registrationService := usecase.NewRegistrationService(repos.Users, passwordValidator, verificationService, authService)
	passwordResetService := usecase.NewPasswordResetService(repos.Users, repos.Tokens, enqueuer, transactor, passwordValidator, cfg.Auth.ResetTTL, log)
	sessionService := usecase.NewSessionService(repos.Sessions)
	userService := usecase.NewUserService(repos.Users)
	noteService := usecase.NewNoteService(repos.Notes)
	mailAdminService := usecase.NewMailAdminService(repos.DeadLetters, enqueuer, cfg.Mail.DeadLetterRetention)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     telemetry.NewMetrics(),
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			Users:         userService,
			Verification:  verificationService,
			PasswordReset: passwordResetService,
			Sessions:      sessionService,
			Notes:         noteService,
			MailAdmin:     mailAdminService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
