package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type memRateStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	err      error
}

func newMemRateStore() *memRateStore {
	return &memRateStore{attempts: make(map[string][]time.Time)}
}

func (s *memRateStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	var kept []time.Time
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) {
			kept = append(kept, at)
		}
	}
	s.attempts[identifier] = kept
	return nil
}

func (s *memRateStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) {
			count++
		}
	}
	return count, nil
}

func (s *memRateStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

func (s *memRateStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if s.err != nil {
		return time.Time{}, false, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	var inWindow []time.Time
	for _, at := range s.attempts[identifier] {
		if at.After(threshold) {
			inWindow = append(inWindow, at)
		}
	}
	if len(inWindow) == 0 {
		return time.Time{}, false, nil
	}
	sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Before(inWindow[j]) })
	return inWindow[0], true, nil
}

func newRateLimitedRouter(limiter *RateLimiter, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnrichContext())
	r.POST("/login", limiter.RateLimit(rule), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func performRequest(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(newMemRateStore(), nil).
		WithClock(func() time.Time { return now })

	rule := RateLimitRule{
		Name:       "login_ip",
		Limit:      3,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}
	router := newRateLimitedRouter(limiter, rule)

	for i := 0; i < 3; i++ {
		if w := performRequest(router); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := performRequest(router)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on rejection")
	}
}

func TestRateLimitWindowSlides(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(newMemRateStore(), nil).
		WithClock(func() time.Time { return now })

	rule := RateLimitRule{
		Name:       "login_ip",
		Limit:      2,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}
	router := newRateLimitedRouter(limiter, rule)

	performRequest(router)
	performRequest(router)

	if w := performRequest(router); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}

	// Past the window the attempts fall out of scope.
	now = now.Add(61 * time.Second)
	if w := performRequest(router); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after window passed, got %d", w.Code)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	store := newMemRateStore()
	store.err = context.DeadlineExceeded
	limiter := NewRateLimiter(store, nil)

	rule := RateLimitRule{
		Name:       "login_ip",
		Limit:      1,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}
	router := newRateLimitedRouter(limiter, rule)

	if w := performRequest(router); w.Code != http.StatusOK {
		t.Fatalf("expected request to pass when store is down, got %d", w.Code)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	now := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(newMemRateStore(), nil).
		WithClock(func() time.Time { return now })

	rule := RateLimitRule{
		Name:       "login_ip",
		Limit:      5,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}
	router := newRateLimitedRouter(limiter, rule)

	w := performRequest(router)
	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Fatalf("expected remaining header 4, got %q", got)
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("expected reset header")
	}
}
