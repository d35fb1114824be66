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

var userColumns = []string{
	"id",
	"name",
	"email",
	"password_hash",
	"is_active",
	"failed_login_attempts",
	"locked_until",
	"email_verified_at",
	"password_changed_at",
	"last_login_at",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository backed by PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row. A duplicate email surfaces as
// repository.ErrConflict via the unique index on lower(email).
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("app.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.IsActive,
			user.FailedLoginAttempts,
			user.LockedUntil,
			user.EmailVerifiedAt,
			user.PasswordChangedAt,
			user.LastLoginAt,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if mapped := mapError(err); mapped == repository.ErrConflict {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("app.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("app.users").
		Where(squirrel.Expr("lower(email) = lower(?)", email)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	return r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateName changes the user's display name.
func (r *UserRepository) UpdateName(ctx context.Context, id string, name string, updatedAt time.Time) error {
	stmt, args, err := r.builder.Update("app.users").
		Set("name", name).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user name sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the password hash and stamps the change time.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error {
	stmt, args, err := r.builder.Update("app.users").
		Set("password_hash", passwordHash).
		Set("password_changed_at", changedAt).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkEmailVerified stamps the verification time.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error {
	stmt, args, err := r.builder.Update("app.users").
		Set("email_verified_at", verifiedAt).
		Set("updated_at", verifiedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark email verified sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordLoginFailure increments the failure counter and sets the lock
// deadline once the counter reaches maxAttempts. The increment and the
// conditional lock happen in one statement so concurrent failures cannot
// bypass the threshold.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, maxAttempts int, lockedUntil time.Time) (int, error) {
	const stmt = `
		UPDATE app.users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts`

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, id, maxAttempts, lockedUntil).Scan(&attempts); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return 0, mapped
		}
		return 0, fmt.Errorf("record login failure: %w", err)
	}

	return attempts, nil
}

// RecordLoginSuccess resets the failure counter, releases any lock, and
// stamps the last login time.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("app.users").
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Set("last_login_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login success sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.EmailVerifiedAt,
		&user.PasswordChangedAt,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if mapped := mapError(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}
