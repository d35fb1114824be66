package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/transport/http/middleware"
	"github.com/ndavydov/account-service/internal/usecase"
)

// AccountHandler exposes profile and session visibility endpoints.
type AccountHandler struct {
	users    *usecase.UserService
	sessions *usecase.SessionService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(users *usecase.UserService, sessions *usecase.SessionService) *AccountHandler {
	return &AccountHandler{users: users, sessions: sessions}
}

// RegisterRoutes binds the authenticated account routes.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.profile)
	r.PATCH("/me", h.updateProfile)
	r.GET("/sessions", h.listSessions)
}

func (h *AccountHandler) profile(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user))
}

func (h *AccountHandler) updateProfile(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "name is required"))
		return
	}

	user, err := h.users.UpdateName(c.Request.Context(), userID, req.Name)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrNameRequired, Status: http.StatusBadRequest, Message: "name is required"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(*user))
}

func (h *AccountHandler) listSessions(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.sessions.ListActive(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	resp := SessionListResponse{Sessions: make([]SessionPayload, 0, len(sessions))}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, newSessionPayload(session))
	}

	c.JSON(http.StatusOK, resp)
}
