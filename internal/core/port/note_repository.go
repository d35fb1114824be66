package port

import (
	"context"

	"github.com/ndavydov/account-service/internal/core/domain"
)

// NoteFilter constrains note listings.
type NoteFilter struct {
	UserID string
	Limit  int
	Offset int
}

// NoteRepository exposes persistence behavior for notes.
type NoteRepository interface {
	Create(ctx context.Context, note domain.Note) error
	GetByID(ctx context.Context, id string) (*domain.Note, error)
	List(ctx context.Context, filter NoteFilter) ([]domain.Note, error)
	Count(ctx context.Context, filter NoteFilter) (int, error)
	Update(ctx context.Context, note domain.Note) error
	Delete(ctx context.Context, id string) error
}
