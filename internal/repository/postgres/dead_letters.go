package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/repository"
)

var deadLetterColumns = []string{
	"id",
	"job",
	"attempts",
	"last_error",
	"failed_at",
}

// DeadLetterRepository implements port.DeadLetterRepository backed by
// PostgreSQL. The original job travels as a JSONB column so a retry can
// re-enqueue it unchanged.
type DeadLetterRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDeadLetterRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewDeadLetterRepository(exec pgExecutor) *DeadLetterRepository {
	return &DeadLetterRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create persists a new dead letter.
func (r *DeadLetterRepository) Create(ctx context.Context, letter domain.MailDeadLetter) error {
	jobJSON, err := json.Marshal(letter.Job)
	if err != nil {
		return fmt.Errorf("marshal dead letter job: %w", err)
	}

	stmt, args, err := r.builder.Insert("app.mail_dead_letters").
		Columns(deadLetterColumns...).
		Values(
			letter.ID,
			jobJSON,
			letter.Attempts,
			letter.LastError,
			letter.FailedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert dead letter sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}

	return nil
}

// GetByID retrieves a dead letter by identifier.
func (r *DeadLetterRepository) GetByID(ctx context.Context, id string) (*domain.MailDeadLetter, error) {
	stmt, args, err := r.builder.
		Select(deadLetterColumns...).
		From("app.mail_dead_letters").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select dead letter sql: %w", err)
	}

	var (
		letter  domain.MailDeadLetter
		jobJSON []byte
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&letter.ID,
		&jobJSON,
		&letter.Attempts,
		&letter.LastError,
		&letter.FailedAt,
	); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("scan dead letter: %w", err)
	}

	if err := json.Unmarshal(jobJSON, &letter.Job); err != nil {
		return nil, fmt.Errorf("unmarshal dead letter job: %w", err)
	}

	return &letter, nil
}

// List returns dead letters, most recent failures first.
func (r *DeadLetterRepository) List(ctx context.Context, limit, offset int) ([]domain.MailDeadLetter, error) {
	query := r.builder.
		Select(deadLetterColumns...).
		From("app.mail_dead_letters").
		OrderBy("failed_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	if offset > 0 {
		query = query.Offset(uint64(offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list dead letters sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []domain.MailDeadLetter
	for rows.Next() {
		var (
			letter  domain.MailDeadLetter
			jobJSON []byte
		)
		if err := rows.Scan(
			&letter.ID,
			&jobJSON,
			&letter.Attempts,
			&letter.LastError,
			&letter.FailedAt,
		); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		if err := json.Unmarshal(jobJSON, &letter.Job); err != nil {
			return nil, fmt.Errorf("unmarshal dead letter job: %w", err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}

	return letters, nil
}

// Delete removes a dead letter, typically after a successful retry.
func (r *DeadLetterRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("app.mail_dead_letters").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete dead letter sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete dead letter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// PurgeOlderThan removes dead letters that failed before the cutoff and
// returns how many were removed.
func (r *DeadLetterRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("app.mail_dead_letters").
		Where(squirrel.Lt{"failed_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge dead letters sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge dead letters: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
