package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/repository"
)

const (
	defaultNotePageSize = 20
	maxNotePageSize     = 100
)

var (
	// ErrNoteNotFound covers both a missing note and one owned by another
	// user; ownership is never revealed through a distinct error.
	ErrNoteNotFound = errors.New("note not found")
	// ErrTitleRequired indicates the note title is missing.
	ErrTitleRequired = errors.New("title is required")
)

// NotePage is one page of a user's notes.
type NotePage struct {
	Notes  []domain.Note
	Total  int
	Limit  int
	Offset int
}

// NoteService exposes the owned CRUD resource.
type NoteService struct {
	notes port.NoteRepository
	now   func() time.Time
}

// NewNoteService constructs a note service.
func NewNoteService(notes port.NoteRepository) *NoteService {
	return &NoteService{
		notes: notes,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic testing.
func (s *NoteService) WithClock(clock func() time.Time) *NoteService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Create stores a new note for the user.
func (s *NoteService) Create(ctx context.Context, userID, title, content string) (*domain.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	now := s.now()
	note := domain.Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	return &note, nil
}

// Get returns the note when it belongs to the user.
func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	note, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("lookup note: %w", err)
	}
	if note.UserID != userID {
		return nil, ErrNoteNotFound
	}

	return note, nil
}

// List returns one page of the user's notes, newest first.
func (s *NoteService) List(ctx context.Context, userID string, limit, offset int) (*NotePage, error) {
	if limit <= 0 {
		limit = defaultNotePageSize
	}
	if limit > maxNotePageSize {
		limit = maxNotePageSize
	}
	if offset < 0 {
		offset = 0
	}

	filter := port.NoteFilter{UserID: userID, Limit: limit, Offset: offset}

	notes, err := s.notes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	total, err := s.notes.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	return &NotePage{Notes: notes, Total: total, Limit: limit, Offset: offset}, nil
}

// Update rewrites the note's title and content.
func (s *NoteService) Update(ctx context.Context, userID, noteID, title, content string) (*domain.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	note, err := s.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}

	note.Title = title
	note.Content = content
	note.UpdatedAt = s.now()

	if err := s.notes.Update(ctx, *note); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}

	return note, nil
}

// Delete removes the note when it belongs to the user.
func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return err
	}

	if err := s.notes.Delete(ctx, noteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}

	return nil
}
