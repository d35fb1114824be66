package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/infra/telemetry"
	"github.com/ndavydov/account-service/internal/transport/http/middleware"
	"github.com/ndavydov/account-service/internal/usecase"
)

// AuthHandler exposes registration, login, and session lifecycle endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	sessions     *usecase.SessionService
	metrics      *telemetry.Metrics
}

// NewAuthHandler constructs AuthHandler. Metrics may be nil.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService, sessions *usecase.SessionService, metrics *telemetry.Metrics) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		sessions:     sessions,
		metrics:      metrics,
	}
}

// AuthRouteMiddlewares holds optional per-endpoint middleware chains, used
// to attach rate limiting ahead of the credentialed endpoints.
type AuthRouteMiddlewares struct {
	Register []gin.HandlerFunc
	Login    []gin.HandlerFunc
	Refresh  []gin.HandlerFunc
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, mw AuthRouteMiddlewares) {
	r.POST("/register", append(append([]gin.HandlerFunc{}, mw.Register...), h.register)...)
	r.POST("/login", append(append([]gin.HandlerFunc{}, mw.Login...), h.login)...)
	r.POST("/refresh", append(append([]gin.HandlerFunc{}, mw.Refresh...), h.refresh)...)
	r.POST("/logout", h.logout)
	r.POST("/logout-all", middleware.RequireAuth(h.auth), h.logoutAll)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	meta := sessionMetadata(c)
	pair, user, err := h.registration.Register(c.Request.Context(), req.Name, req.Email, req.Password, meta)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmailTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "email is already registered"))
		case errors.Is(err, usecase.ErrPasswordPolicyViolation):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet the policy"))
		case errors.Is(err, usecase.ErrNameRequired), errors.Is(err, usecase.ErrEmailRequired):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "registration failed"))
		}
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.auth.AccessTTL().Seconds()),
		User:         newUserPayload(*user),
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	meta := sessionMetadata(c)
	pair, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, meta)
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncLoginFailure()
		}
		var lockErr *usecase.AccountLockedError
		switch {
		case errors.As(err, &lockErr):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, lockErr.Error()))
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid email or password"))
		case errors.Is(err, usecase.ErrAccountDisabled):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "account is disabled"))
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		}
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.auth.AccessTTL().Seconds()),
		User:         newUserPayload(*user),
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.auth.AccessTTL().Seconds()),
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh_token is required"))
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) logoutAll(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	count, err := h.sessions.RevokeAll(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke sessions"))
		return
	}

	c.JSON(http.StatusOK, RevokeAllResponse{SessionsRevoked: count})
}

func sessionMetadata(c *gin.Context) usecase.SessionMetadata {
	meta := usecase.SessionMetadata{}
	if ua := c.Request.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	if ip := c.ClientIP(); ip != "" {
		meta.IPAddress = &ip
	}
	return meta
}
