package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndavydov/account-service/internal/core/domain"
	"github.com/ndavydov/account-service/internal/infra/config"
	"github.com/ndavydov/account-service/internal/infra/security"
)

const testPassword = "C0rrect-Horse-42"

func testAuthSettings() config.AuthSettings {
	return config.AuthSettings{
		MaxFailedLogins: 3,
		LockoutDuration: 15 * time.Minute,
	}
}

func newTestUser(t *testing.T, id, email string) domain.User {
	t.Helper()
	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	return domain.User{
		ID:           id,
		Name:         "Ada",
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestLoginSuccess(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	sessions := newMemSessions()
	issuer := newTestIssuer(t, 15*time.Minute, 24*time.Hour)
	svc := NewAuthService(testAuthSettings(), users, sessions, issuer)

	pair, user, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if user.PasswordHash != "" {
		t.Fatal("expected password hash to be stripped from the returned user")
	}
	if user.LastLoginAt == nil {
		t.Fatal("expected last login to be stamped")
	}
	if len(sessions.byID) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions.byID))
	}
}

func TestLoginUnknownEmailGeneric(t *testing.T) {
	users := newMemUsers()
	svc := NewAuthService(testAuthSettings(), users, newMemSessions(), newTestIssuer(t, time.Minute, time.Hour))

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever-Pass1", SessionMetadata{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPasswordIncrementsCounter(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	svc := NewAuthService(testAuthSettings(), users, newMemSessions(), newTestIssuer(t, time.Minute, time.Hour))

	for i := 1; i <= 2; i++ {
		_, _, err := svc.Login(context.Background(), "ada@example.com", "Wrong-pass-1", SessionMetadata{})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
		if got := users.byID["user-1"].FailedLoginAttempts; got != i {
			t.Fatalf("attempt %d: expected %d failures recorded, got %d", i, i, got)
		}
	}
	if users.byID["user-1"].LockedUntil != nil {
		t.Fatal("account should not be locked below the threshold")
	}
}

func TestLoginLockoutAfterMaxFailures(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	svc := NewAuthService(testAuthSettings(), users, newMemSessions(), newTestIssuer(t, time.Minute, time.Hour))

	// Three wrong passwords with max=3 lock the account.
	for i := 0; i < 3; i++ {
		if _, _, err := svc.Login(context.Background(), "ada@example.com", "Wrong-pass-1", SessionMetadata{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if users.byID["user-1"].LockedUntil == nil {
		t.Fatal("expected account locked after reaching the threshold")
	}

	// The correct password now fails with the lock error: the caller proved
	// password knowledge, so the lock state may be revealed.
	_, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	var lockedErr *AccountLockedError
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected AccountLockedError, got %T", err)
	}
	if lockedErr.Until.IsZero() {
		t.Fatal("expected lock deadline populated")
	}
}

func TestLoginLazyUnlockAfterLockExpiry(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	sessions := newMemSessions()
	issuer := newTestIssuer(t, time.Minute, time.Hour)

	base := time.Now().UTC()
	clock := base
	svc := NewAuthService(testAuthSettings(), users, sessions, issuer).
		WithClock(func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Login(context.Background(), "ada@example.com", "Wrong-pass-1", SessionMetadata{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked while lock active, got %v", err)
	}

	// After the lock duration passes, the same login succeeds and the
	// counter resets.
	clock = base.Add(16 * time.Minute)
	_, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("expected login to succeed after lock expiry, got %v", err)
	}
	if got := users.byID["user-1"].FailedLoginAttempts; got != 0 {
		t.Fatalf("expected failure counter reset, got %d", got)
	}
	if users.byID["user-1"].LockedUntil != nil {
		t.Fatal("expected lock cleared")
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	user := newTestUser(t, "user-1", "ada@example.com")
	user.IsActive = false
	users := newMemUsers(user)
	svc := NewAuthService(testAuthSettings(), users, newMemSessions(), newTestIssuer(t, time.Minute, time.Hour))

	// Wrong password on a disabled account: still the generic error, never
	// the disabled state.
	if _, _, err := svc.Login(context.Background(), "ada@example.com", "Wrong-pass-1", SessionMetadata{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRefreshRotationSingleUse(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	sessions := newMemSessions()
	svc := NewAuthService(testAuthSettings(), users, sessions, newTestIssuer(t, time.Minute, time.Hour))

	pair, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a new refresh token after rotation")
	}

	// Re-submitting the pre-rotation token must fail even though the new
	// token is valid: rotation is single-use.
	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for reused token, got %v", err)
	}

	if _, err := svc.Refresh(context.Background(), rotated.RefreshToken); err != nil {
		t.Fatalf("expected the rotated token to remain valid, got %v", err)
	}
}

func TestRefreshRevokedSession(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	sessions := newMemSessions()
	svc := NewAuthService(testAuthSettings(), users, sessions, newTestIssuer(t, time.Minute, time.Hour))

	pair, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	for _, session := range sessions.byID {
		if err := sessions.Revoke(context.Background(), session.ID, time.Now().UTC()); err != nil {
			t.Fatalf("revoke session: %v", err)
		}
	}

	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshInactiveUser(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	sessions := newMemSessions()
	svc := NewAuthService(testAuthSettings(), users, sessions, newTestIssuer(t, time.Minute, time.Hour))

	pair, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	users.byID["user-1"].IsActive = false

	if _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for inactive user, got %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	svc := NewAuthService(testAuthSettings(), newMemUsers(), newMemSessions(), newTestIssuer(t, time.Minute, time.Hour))

	if _, err := svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestParseAccessToken(t *testing.T) {
	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	svc := NewAuthService(testAuthSettings(), users, newMemSessions(), newTestIssuer(t, time.Minute, time.Hour))

	pair, _, err := svc.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}

	if _, err := svc.ParseAccessToken("garbage"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected ErrInvalidAccessToken, got %v", err)
	}
}
