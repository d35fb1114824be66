package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ndavydov/account-service/internal/core/port"
)

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users       *UserRepository
	Sessions    *SessionRepository
	Tokens      *TokenRepository
	Notes       *NoteRepository
	DeadLetters *DeadLetterRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(pool),
		Sessions:    NewSessionRepository(pool),
		Tokens:      NewTokenRepository(pool),
		Notes:       NewNoteRepository(pool),
		DeadLetters: NewDeadLetterRepository(pool),
	}
}

// Transactor implements port.Transactor on a pgx pool.
type Transactor struct {
	pool *pgxpool.Pool
}

// NewTransactor constructs a Transactor over the pool.
func NewTransactor(pool *pgxpool.Pool) *Transactor {
	return &Transactor{pool: pool}
}

// WithinTx runs fn against repositories bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (t *Transactor) WithinTx(ctx context.Context, fn func(repos port.TxRepositories) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := port.TxRepositories{
		Users:    NewUserRepository(t.pool).WithTx(tx),
		Sessions: NewSessionRepository(t.pool).WithTx(tx),
		Tokens:   NewTokenRepository(t.pool).WithTx(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

var _ port.Transactor = (*Transactor)(nil)
