package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/core/port"
	"github.com/ndavydov/account-service/internal/infra/security"
	"github.com/ndavydov/account-service/internal/repository"
)

// newTestIssuer writes a throwaway RSA key pair into a temp dir and builds a
// token issuer over it.
func newTestIssuer(t *testing.T, accessTTL, refreshTTL time.Duration) *security.TokenIssuer {
	t.Helper()

	tmpDir := t.TempDir()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	keyPath := filepath.Join(tmpDir, "signing.pem")
	keyFile, err := os.Create(keyPath)
	if err != nil {
		t.Fatalf("failed to create key file: %v", err)
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}
	if err := pem.Encode(keyFile, block); err != nil {
		t.Fatalf("failed to encode key: %v", err)
	}
	keyFile.Close()

	provider, err := security.NewFileKeyProvider(tmpDir)
	if err != nil {
		t.Fatalf("failed to create key provider: %v", err)
	}

	return security.NewTokenIssuer(provider, "account-service-test", accessTTL, refreshTTL)
}

type memUsers struct {
	byID map[string]*domain.User
}

func newMemUsers(users ...domain.User) *memUsers {
	repo := &memUsers{byID: make(map[string]*domain.User)}
	for _, u := range users {
		copied := u
		repo.byID[u.ID] = &copied
	}
	return repo
}

func (r *memUsers) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrConflict
		}
	}
	copied := user
	r.byID[user.ID] = &copied
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.byID[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.byID {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) UpdateName(_ context.Context, id string, name string, updatedAt time.Time) error {
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Name = name
	user.UpdatedAt = updatedAt
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id string, passwordHash string, changedAt time.Time) error {
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = &changedAt
	user.UpdatedAt = changedAt
	return nil
}

func (r *memUsers) MarkEmailVerified(_ context.Context, id string, verifiedAt time.Time) error {
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerifiedAt = &verifiedAt
	user.UpdatedAt = verifiedAt
	return nil
}

func (r *memUsers) RecordLoginFailure(_ context.Context, id string, maxAttempts int, lockedUntil time.Time) (int, error) {
	user, ok := r.byID[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= maxAttempts {
		until := lockedUntil
		user.LockedUntil = &until
	}
	return user.FailedLoginAttempts, nil
}

func (r *memUsers) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	user, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	at2 := at
	user.LastLoginAt = &at2
	return nil
}

type memSessions struct {
	byID map[string]*domain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: make(map[string]*domain.Session)}
}

func (r *memSessions) Create(_ context.Context, session domain.Session) error {
	copied := session
	r.byID[session.ID] = &copied
	return nil
}

func (r *memSessions) GetByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	for _, session := range r.byID {
		if session.RefreshTokenHash == hash {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSessions) Rotate(_ context.Context, sessionID string, oldHash, newHash string, expiresAt time.Time) error {
	session, ok := r.byID[sessionID]
	if !ok || session.RefreshTokenHash != oldHash || session.RevokedAt != nil {
		return repository.ErrNotFound
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = expiresAt
	return nil
}

func (r *memSessions) Revoke(_ context.Context, sessionID string, at time.Time) error {
	session, ok := r.byID[sessionID]
	if !ok || session.RevokedAt != nil {
		return repository.ErrNotFound
	}
	at2 := at
	session.RevokedAt = &at2
	return nil
}

func (r *memSessions) RevokeAllForUser(_ context.Context, userID string, at time.Time) (int, error) {
	count := 0
	for _, session := range r.byID {
		if session.UserID == userID && session.RevokedAt == nil && session.ExpiresAt.After(at) {
			at2 := at
			session.RevokedAt = &at2
			count++
		}
	}
	return count, nil
}

func (r *memSessions) ListActiveByUser(_ context.Context, userID string) ([]domain.Session, error) {
	now := time.Now().UTC()
	var sessions []domain.Session
	for _, session := range r.byID {
		if session.UserID == userID && session.IsActive(now) {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

type memTokens struct {
	byID map[string]*domain.ActionToken
}

func newMemTokens() *memTokens {
	return &memTokens{byID: make(map[string]*domain.ActionToken)}
}

func (r *memTokens) Create(_ context.Context, token domain.ActionToken) error {
	copied := token
	r.byID[token.ID] = &copied
	return nil
}

func (r *memTokens) GetByHash(_ context.Context, hash string, purpose domain.ActionTokenPurpose) (*domain.ActionToken, error) {
	for _, token := range r.byID {
		if token.TokenHash == hash && token.Purpose == purpose {
			copied := *token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokens) Consume(_ context.Context, id string, usedAt time.Time) error {
	token, ok := r.byID[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	at := usedAt
	token.UsedAt = &at
	return nil
}

type memEnqueuer struct {
	jobs []domain.EmailJob
	err  error
}

func (e *memEnqueuer) Enqueue(_ context.Context, job domain.EmailJob) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

// memTransactor hands the same in-memory repositories to fn. Rollback is not
// emulated; tests assert the success and early-return paths.
type memTransactor struct {
	users    *memUsers
	sessions *memSessions
	tokens   *memTokens
}

func (t *memTransactor) WithinTx(_ context.Context, fn func(repos port.TxRepositories) error) error {
	return fn(port.TxRepositories{
		Users:    t.users,
		Sessions: t.sessions,
		Tokens:   t.tokens,
	})
}

type memDeadLetters struct {
	byID map[string]*domain.MailDeadLetter
}

func newMemDeadLetters(letters ...domain.MailDeadLetter) *memDeadLetters {
	repo := &memDeadLetters{byID: make(map[string]*domain.MailDeadLetter)}
	for _, l := range letters {
		copied := l
		repo.byID[l.ID] = &copied
	}
	return repo
}

func (r *memDeadLetters) Create(_ context.Context, letter domain.MailDeadLetter) error {
	copied := letter
	r.byID[letter.ID] = &copied
	return nil
}

func (r *memDeadLetters) GetByID(_ context.Context, id string) (*domain.MailDeadLetter, error) {
	if letter, ok := r.byID[id]; ok {
		copied := *letter
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memDeadLetters) List(_ context.Context, limit, offset int) ([]domain.MailDeadLetter, error) {
	var letters []domain.MailDeadLetter
	for _, letter := range r.byID {
		letters = append(letters, *letter)
	}
	return letters, nil
}

func (r *memDeadLetters) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memDeadLetters) PurgeOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	count := 0
	for id, letter := range r.byID {
		if letter.FailedAt.Before(cutoff) {
			delete(r.byID, id)
			count++
		}
	}
	return count, nil
}

var (
	_ port.UserRepository       = (*memUsers)(nil)
	_ port.SessionRepository    = (*memSessions)(nil)
	_ port.TokenRepository      = (*memTokens)(nil)
	_ port.EmailEnqueuer        = (*memEnqueuer)(nil)
	_ port.Transactor           = (*memTransactor)(nil)
	_ port.DeadLetterRepository = (*memDeadLetters)(nil)
)
