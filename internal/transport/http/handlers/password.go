package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/usecase"
)

// PasswordHandler exposes the forgot-password flow.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// ForgotPassword starts a reset. The response never reveals whether the
// email belongs to an account.
func (h *PasswordHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.reset.Request(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process request"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if the address is registered, a reset email is on its way"})
}

// ResetPassword completes a reset with a token from the email.
func (h *PasswordHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new_password are required"))
		return
	}

	if err := h.reset.Confirm(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrInvalidActionToken, Status: http.StatusBadRequest, Message: "invalid or expired token"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet the policy"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
