package ratelimiter

import (
	"context"
	"testing"
	"time"
)

type fakeLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	gotCost    int64
}

func (f *fakeLimiter) Allow(_ context.Context, _ string, cost int64) (bool, time.Duration, error) {
	f.gotCost = cost
	return f.allowed, f.retryAfter, f.err
}

func TestDomainAdapter_Allow_ConvertsCost(t *testing.T) {
	fl := &fakeLimiter{allowed: true}
	adapter := NewDomainAdapter(fl)

	allowed, _, err := adapter.Allow(context.Background(), "branch:1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatal("expected allowed=true")
	}
	if fl.gotCost != 3 {
		t.Fatalf("expected cost 3, got %d", fl.gotCost)
	}
}

func TestDomainAdapter_Allow_NilLimiterAlwaysAllows(t *testing.T) {
	adapter := NewDomainAdapter(nil)
	allowed, wait, err := adapter.Allow(context.Background(), "branch:1", 1)
	if err != nil || !allowed || wait != 0 {
		t.Fatalf("expected no-op allow, got allowed=%v wait=%v err=%v", allowed, wait, err)
	}
}
