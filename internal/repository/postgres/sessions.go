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

var sessionColumns = []string{
	"id",
	"user_id",
	"refresh_token_hash",
	"user_agent",
	"ip_address",
	"created_at",
	"expires_at",
	"revoked_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new session row.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("app.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.RefreshTokenHash,
			session.UserAgent,
			session.IPAddress,
			session.CreatedAt,
			session.ExpiresAt,
			session.RevokedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves the session holding the given refresh token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("app.sessions").
		Where(squirrel.Eq{"refresh_token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	return r.scanSession(r.exec.QueryRow(ctx, stmt, args...))
}

// Rotate swaps the token hash and expiry in one conditional update keyed on
// the previous hash. When the session no longer carries oldHash the update
// affects zero rows and repository.ErrNotFound is returned; concurrent
// refreshes of the same token therefore resolve first-writer-wins.
func (r *SessionRepository) Rotate(ctx context.Context, sessionID string, oldHash, newHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Update("app.sessions").
		Set("refresh_token_hash", newHash).
		Set("expires_at", expiresAt).
		Where(squirrel.Eq{"id": sessionID, "refresh_token_hash": oldHash}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build rotate session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Revoke marks a single session revoked. Already revoked sessions return
// repository.ErrNotFound.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string, at time.Time) error {
	stmt, args, err := r.builder.Update("app.sessions").
		Set("revoked_at", at).
		Where(squirrel.Eq{"id": sessionID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build revoke session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeAllForUser revokes every live session of the user and returns how
// many were affected.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("app.sessions").
		Set("revoked_at", at).
		Where(squirrel.Eq{"user_id": userID}).
		Where("revoked_at IS NULL").
		Where(squirrel.Gt{"expires_at": at}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke user sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// ListActiveByUser returns the user's live sessions, newest first.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("app.sessions").
		Where(squirrel.Eq{"user_id": userID}).
		Where("revoked_at IS NULL").
		Where("expires_at > now()").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.RefreshTokenHash,
			&session.UserAgent,
			&session.IPAddress,
			&session.CreatedAt,
			&session.ExpiresAt,
			&session.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.UserAgent,
		&session.IPAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &session, nil
}
