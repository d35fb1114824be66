package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/repository"
)

var actionTokenColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"purpose",
	"created_at",
	"expires_at",
	"used_at",
}

// TokenRepository implements port.TokenRepository backed by PostgreSQL.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewTokenRepository(exec pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new action token row.
func (r *TokenRepository) Create(ctx context.Context, token domain.ActionToken) error {
	stmt, args, err := r.builder.Insert("app.action_tokens").
		Columns(actionTokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.Purpose,
			token.CreatedAt,
			token.ExpiresAt,
			token.UsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert action token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert action token: %w", err)
	}

	return nil
}

// GetByHash retrieves a token by its hash, scoped to one purpose so a
// verification token can never pass as a reset token.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string, purpose domain.ActionTokenPurpose) (*domain.ActionToken, error) {
	stmt, args, err := r.builder.
		Select(actionTokenColumns...).
		From("app.action_tokens").
		Where(squirrel.Eq{"token_hash": hash, "purpose": purpose}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select action token sql: %w", err)
	}

	var token domain.ActionToken
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
	); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("scan action token: %w", err)
	}

	return &token, nil
}

// Consume stamps the token used. The condition on used_at makes consumption
// single-use at the database level: a second consume attempt affects zero
// rows and returns repository.ErrNotFound.
func (r *TokenRepository) Consume(ctx context.Context, id string, usedAt time.Time) error {
	stmt, args, err := r.builder.Update("app.action_tokens").
		Set("used_at", usedAt).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume action token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume action token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
