package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/transport/http/middleware"
	"github.com/ndavydov/account-service/internal/usecase"
)

// VerificationHandler exposes email verification endpoints.
type VerificationHandler struct {
	verification *usecase.VerificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// ConfirmEmail consumes a verification token and marks the address verified.
func (h *VerificationHandler) ConfirmEmail(c *gin.Context) {
	var req ConfirmTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	if err := h.verification.Confirm(c.Request.Context(), req.Token); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidActionToken, Status: http.StatusBadRequest, Message: "invalid or expired token"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

// ResendVerification queues a fresh verification email for the caller. The
// response is identical whether or not a new token was issued.
func (h *VerificationHandler) ResendVerification(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.verification.Resend(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to resend verification"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification email queued"})
}
