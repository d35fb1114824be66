package usecase

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newSessionFixture(t *testing.T) (*SessionService, *AuthService, *memUsers, *memSessions) {
	t.Helper()

	users := newMemUsers(newTestUser(t, "user-1", "ada@example.com"))
	sessions := newMemSessions()
	issuer := newTestIssuer(t, 15*time.Minute, 24*time.Hour)
	auth := NewAuthService(testAuthSettings(), users, sessions, issuer)

	return NewSessionService(sessions), auth, users, sessions
}

func TestLogoutRevokesOnlyTargetSession(t *testing.T) {
	svc, auth, _, _ := newSessionFixture(t)

	pairA, _, err := auth.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("login A: %v", err)
	}
	pairB, _, err := auth.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("login B: %v", err)
	}

	if err := svc.Logout(context.Background(), pairA.RefreshToken); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if _, err := auth.Refresh(context.Background(), pairA.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected session A unusable after logout, got %v", err)
	}
	// The other device's session is untouched.
	if _, err := auth.Refresh(context.Background(), pairB.RefreshToken); err != nil {
		t.Fatalf("refresh on session B: %v", err)
	}
}

func TestLogoutIdempotencyAndGarbage(t *testing.T) {
	svc, auth, _, _ := newSessionFixture(t)

	pair, _, err := auth.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("first Logout returned error: %v", err)
	}
	if err := svc.Logout(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on repeat logout, got %v", err)
	}
	if err := svc.Logout(context.Background(), ""); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for empty token, got %v", err)
	}
	if err := svc.Logout(context.Background(), "junk"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for unknown token, got %v", err)
	}
}

func TestRevokeAllSessions(t *testing.T) {
	svc, auth, _, _ := newSessionFixture(t)

	var pairs []TokenPair
	for i := 0; i < 3; i++ {
		pair, _, err := auth.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{})
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		pairs = append(pairs, pair)
	}

	count, err := svc.RevokeAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RevokeAll returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 sessions revoked, got %d", count)
	}

	for i, pair := range pairs {
		if _, err := auth.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("expected session %d revoked, got %v", i, err)
		}
	}
}

func TestListActiveStripsTokenHashes(t *testing.T) {
	svc, auth, _, _ := newSessionFixture(t)

	agent := "cli/1.0"
	if _, _, err := auth.Login(context.Background(), "ada@example.com", testPassword, SessionMetadata{UserAgent: &agent}); err != nil {
		t.Fatalf("login: %v", err)
	}

	active, err := svc.ListActive(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(active))
	}
	if active[0].RefreshTokenHash != "" {
		t.Fatal("expected token hash stripped from listing")
	}
	if active[0].UserAgent == nil || *active[0].UserAgent != agent {
		t.Fatal("expected user agent preserved")
	}
}
