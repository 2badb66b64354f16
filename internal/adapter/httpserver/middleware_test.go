package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

type fakeRateLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (f fakeRateLimiter) Allow(domain.Context, string, int) (bool, time.Duration, error) {
	return f.allowed, f.retryAfter, f.err
}

func TestRateLimitActor_NilLimiterAllows(t *testing.T) {
	called := false
	h := RateLimitActor(nil, "mutations", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", nil))

	if !called {
		t.Fatal("expected next handler to run when limiter is nil")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimitActor_Allowed(t *testing.T) {
	called := false
	limiter := fakeRateLimiter{allowed: true}
	h := RateLimitActor(limiter, "mutations", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", nil))

	if !called {
		t.Fatal("expected next handler to run when limiter allows")
	}
}

func TestRateLimitActor_DeniedSetsRetryAfter(t *testing.T) {
	called := false
	limiter := fakeRateLimiter{allowed: false, retryAfter: 2500 * time.Millisecond}
	h := RateLimitActor(limiter, "mutations", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", nil))

	if called {
		t.Fatal("expected next handler to not run when limiter denies")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "3" {
		t.Fatalf("expected Retry-After 3 (rounded up from 2.5s), got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimitActor_ErrorFailsOpen(t *testing.T) {
	called := false
	limiter := fakeRateLimiter{err: errors.New("redis unavailable")}
	h := RateLimitActor(limiter, "mutations", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales", nil))

	if !called {
		t.Fatal("expected next handler to run when limiter errors (fail open)")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
