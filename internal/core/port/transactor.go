package port

import "context"

// TxRepositories bundles repositories bound to a single transaction.
type TxRepositories struct {
	Users    UserRepository
	Sessions SessionRepository
	Tokens   TokenRepository
}

// Transactor executes fn against repositories sharing one transaction,
// committing when fn returns nil and rolling back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
