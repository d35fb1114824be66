package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/repository"
)

var noteColumns = []string{
	"id",
	"user_id",
	"title",
	"content",
	"created_at",
	"updated_at",
}

// NoteRepository implements port.NoteRepository backed by PostgreSQL.
type NoteRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewNoteRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewNoteRepository(exec pgExecutor) *NoteRepository {
	return &NoteRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new note row.
func (r *NoteRepository) Create(ctx context.Context, note domain.Note) error {
	stmt, args, err := r.builder.Insert("app.notes").
		Columns(noteColumns...).
		Values(
			note.ID,
			note.UserID,
			note.Title,
			note.Content,
			note.CreatedAt,
			note.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert note sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by identifier.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	stmt, args, err := r.builder.
		Select(noteColumns...).
		From("app.notes").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select note sql: %w", err)
	}

	var note domain.Note
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}

	return &note, nil
}

// List returns the owner's notes, newest first, within the filter's page.
func (r *NoteRepository) List(ctx context.Context, filter port.NoteFilter) ([]domain.Note, error) {
	query := r.builder.
		Select(noteColumns...).
		From("app.notes").
		Where(squirrel.Eq{"user_id": filter.UserID}).
		OrderBy("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notes sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID,
			&note.UserID,
			&note.Title,
			&note.Content,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}

	return notes, nil
}

// Count reports the owner's total note count for pagination.
func (r *NoteRepository) Count(ctx context.Context, filter port.NoteFilter) (int, error) {
	stmt, args, err := r.builder.
		Select("count(*)").
		From("app.notes").
		Where(squirrel.Eq{"user_id": filter.UserID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count notes sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}

	return count, nil
}

// Update modifies the note's title and content.
func (r *NoteRepository) Update(ctx context.Context, note domain.Note) error {
	stmt, args, err := r.builder.Update("app.notes").
		Set("title", note.Title).
		Set("content", note.Content).
		Set("updated_at", note.UpdatedAt).
		Where(squirrel.Eq{"id": note.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update note sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a note row.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("app.notes").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete note sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
