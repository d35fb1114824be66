package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/transport/http/middleware"
	"github.com/ndavydov/account-service/internal/usecase"
)

// NoteHandler exposes the owned notes CRUD resource.
type NoteHandler struct {
	notes *usecase.NoteService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes *usecase.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// RegisterRoutes binds note routes to the provided (authenticated) group.
func (h *NoteHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.create)
	r.GET("", h.list)
	r.GET("/:note_id", h.get)
	r.PUT("/:note_id", h.update)
	r.DELETE("/:note_id", h.remove)
}

var noteErrorCases = []ErrorCase{
	{Err: usecase.ErrNoteNotFound, Status: http.StatusNotFound, Message: "note not found"},
	{Err: usecase.ErrTitleRequired, Status: http.StatusBadRequest, Message: "title is required"},
}

func (h *NoteHandler) create(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid note payload"))
		return
	}

	note, err := h.notes.Create(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		RespondWithMappedError(c, err, noteErrorCases, http.StatusInternalServerError, "failed to create note")
		return
	}

	c.JSON(http.StatusCreated, newNotePayload(*note))
}

func (h *NoteHandler) list(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.notes.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list notes"))
		return
	}

	resp := NoteListResponse{
		Notes:  make([]NotePayload, 0, len(page.Notes)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, note := range page.Notes {
		resp.Notes = append(resp.Notes, newNotePayload(note))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *NoteHandler) get(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	note, err := h.notes.Get(c.Request.Context(), userID, c.Param("note_id"))
	if err != nil {
		RespondWithMappedError(c, err, noteErrorCases, http.StatusInternalServerError, "failed to load note")
		return
	}

	c.JSON(http.StatusOK, newNotePayload(*note))
}

func (h *NoteHandler) update(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid note payload"))
		return
	}

	note, err := h.notes.Update(c.Request.Context(), userID, c.Param("note_id"), req.Title, req.Content)
	if err != nil {
		RespondWithMappedError(c, err, noteErrorCases, http.StatusInternalServerError, "failed to update note")
		return
	}

	c.JSON(http.StatusOK, newNotePayload(*note))
}

func (h *NoteHandler) remove(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.notes.Delete(c.Request.Context(), userID, c.Param("note_id")); err != nil {
		RespondWithMappedError(c, err, noteErrorCases, http.StatusInternalServerError, "failed to delete note")
		return
	}

	c.Status(http.StatusNoContent)
}
