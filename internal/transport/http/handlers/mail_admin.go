package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/usecase"
)

// MailAdminHandler exposes the dead-letter administration endpoints.
type MailAdminHandler struct {
	admin *usecase.MailAdminService
}

// NewMailAdminHandler constructs MailAdminHandler.
func NewMailAdminHandler(admin *usecase.MailAdminService) *MailAdminHandler {
	return &MailAdminHandler{admin: admin}
}

// RegisterRoutes binds the dead-letter routes to the provided group.
func (h *MailAdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dead-letters", h.list)
	r.POST("/dead-letters/:letter_id/retry", h.retry)
	r.DELETE("/dead-letters", h.purge)
}

func (h *MailAdminHandler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	letters, err := h.admin.List(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list dead letters"))
		return
	}

	resp := DeadLetterListResponse{DeadLetters: make([]DeadLetterPayload, 0, len(letters))}
	for _, letter := range letters {
		resp.DeadLetters = append(resp.DeadLetters, newDeadLetterPayload(letter))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *MailAdminHandler) retry(c *gin.Context) {
	if err := h.admin.Retry(c.Request.Context(), c.Param("letter_id")); err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrDeadLetterNotFound, Status: http.StatusNotFound, Message: "dead letter not found"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to retry dead letter")
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "job re-enqueued"})
}

func (h *MailAdminHandler) purge(c *gin.Context) {
	count, err := h.admin.Purge(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to purge dead letters"))
		return
	}

	c.JSON(http.StatusOK, PurgeResponse{Purged: count})
}
