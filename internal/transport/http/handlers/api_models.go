package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ndavydov/account-service/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request's trace ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserPayload is the public view of a user account.
type UserPayload struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

func newUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.IsVerified(),
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
	}
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserPayload `json:"user"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LogoutRequest identifies the session to revoke by its refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RevokeAllResponse reports how many sessions were revoked.
type RevokeAllResponse struct {
	SessionsRevoked int `json:"sessions_revoked"`
}

// ConfirmTokenRequest carries a single-use action token.
type ConfirmTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateProfileRequest patches mutable profile fields.
type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

// SessionPayload is the public view of a refresh session.
type SessionPayload struct {
	ID        string    `json:"id"`
	UserAgent *string   `json:"user_agent,omitempty"`
	IPAddress *string   `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newSessionPayload(session domain.Session) SessionPayload {
	return SessionPayload{
		ID:        session.ID,
		UserAgent: session.UserAgent,
		IPAddress: session.IPAddress,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
}

// SessionListResponse wraps the active sessions of a user.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
}

// NoteRequest creates or replaces a note.
type NoteRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

// NotePayload is the public view of a note.
type NotePayload struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newNotePayload(note domain.Note) NotePayload {
	return NotePayload{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

// NoteListResponse is one page of notes with paging metadata.
type NoteListResponse struct {
	Notes  []NotePayload `json:"notes"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// DeadLetterPayload is the admin view of a failed email job.
type DeadLetterPayload struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}

func newDeadLetterPayload(letter domain.MailDeadLetter) DeadLetterPayload {
	return DeadLetterPayload{
		ID:        letter.ID,
		Kind:      string(letter.Job.Kind),
		Recipient: letter.Job.Recipient,
		Attempts:  letter.Attempts,
		LastError: letter.LastError,
		FailedAt:  letter.FailedAt,
	}
}

// DeadLetterListResponse wraps a page of dead letters.
type DeadLetterListResponse struct {
	DeadLetters []DeadLetterPayload `json:"dead_letters"`
}

// PurgeResponse reports how many dead letters were removed.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
