package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/telemetry"
	"github.com/ndavydov/account-service/internal/transport/http/handlers"
	"github.com/ndavydov/account-service/internal/transport/http/middleware"
	"github.com/ndavydov/account-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	Users         *usecase.UserService
	Verification  *usecase.VerificationService
	PasswordReset *usecase.PasswordResetService
	Sessions      *usecase.SessionService
	Notes         *usecase.NoteService
	MailAdmin     *usecase.MailAdminService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *telemetry.Metrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config != nil && deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.Metrics(deps.Metrics))

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Registration, deps.Services.Sessions, deps.Metrics)
		authHandler.RegisterRoutes(authGroup, buildAuthMiddlewares(deps))

		verificationHandler := handlers.NewVerificationHandler(deps.Services.Verification)
		authGroup.POST("/verify-email", verificationHandler.ConfirmEmail)
		authGroup.POST("/resend-verification", authMiddleware, verificationHandler.ResendVerification)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		resetMiddlewares := buildPasswordResetMiddlewares(deps)

		forgotChain := append([]gin.HandlerFunc{}, resetMiddlewares...)
		authGroup.POST("/forgot-password", append(forgotChain, passwordHandler.ForgotPassword)...)
		authGroup.POST("/reset-password", passwordHandler.ResetPassword)

		accountGroup := api.Group("/account")
		accountGroup.Use(authMiddleware)
		accountHandler := handlers.NewAccountHandler(deps.Services.Users, deps.Services.Sessions)
		accountHandler.RegisterRoutes(accountGroup)

		notesGroup := api.Group("/notes")
		notesGroup.Use(authMiddleware)
		noteHandler := handlers.NewNoteHandler(deps.Services.Notes)
		noteHandler.RegisterRoutes(notesGroup)

		if deps.Services.MailAdmin != nil {
			adminGroup := api.Group("/admin/mail")
			adminGroup.Use(authMiddleware)
			mailAdminHandler := handlers.NewMailAdminHandler(deps.Services.MailAdmin)
			mailAdminHandler.RegisterRoutes(adminGroup)
		}
	}

	return r
}

func buildAuthMiddlewares(deps Dependencies) handlers.AuthRouteMiddlewares {
	if deps.RateLimiter == nil || deps.Config == nil {
		return handlers.AuthRouteMiddlewares{}
	}

	rl := deps.Config.RateLimit
	return handlers.AuthRouteMiddlewares{
		Register: rateLimitChain(deps, "auth_register_ip", rl.RegisterMaxAttempts, time.Minute),
		Login:    rateLimitChain(deps, "auth_login_ip", rl.LoginMaxAttempts, time.Minute),
		Refresh:  rateLimitChain(deps, "auth_refresh_ip", rl.RefreshMaxAttempts, time.Minute),
	}
}

func buildPasswordResetMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}
	return rateLimitChain(deps, "password_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts, time.Hour)
}

func rateLimitChain(deps Dependencies, name string, limit int, defaultWindow time.Duration) []gin.HandlerFunc {
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = defaultWindow
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
