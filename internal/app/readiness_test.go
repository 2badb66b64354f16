package app

import (
	"context"
	"errors"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type okPing struct{}

func (okPing) Err() error { return nil }

type errPing struct{ err error }

func (e errPing) Err() error { return e.err }

type fakeRedisClient struct {
	ok  bool
	err error
}

func (f fakeRedisClient) Ping(context.Context) RedisPingResult {
	if f.ok {
		return okPing{}
	}
	return errPing{err: f.err}
}

func TestBuildReadinessChecks_DB(t *testing.T) {
	dbCheck, _ := BuildReadinessChecks(nil, nil)
	if err := dbCheck(context.Background()); err == nil {
		t.Fatal("expected error for unconfigured db pool")
	}

	dbCheck, _ = BuildReadinessChecks(fakePinger{}, nil)
	if err := dbCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dbCheck, _ = BuildReadinessChecks(fakePinger{err: errors.New("down")}, nil)
	if err := dbCheck(context.Background()); err == nil {
		t.Fatal("expected error from failing pool")
	}
}

func TestBuildReadinessChecks_Redis(t *testing.T) {
	_, redisCheck := BuildReadinessChecks(nil, nil)
	if err := redisCheck(context.Background()); err != nil {
		t.Fatalf("expected redis check to skip when client is nil, got %v", err)
	}

	_, redisCheck = BuildReadinessChecks(nil, fakeRedisClient{ok: true})
	if err := redisCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, redisCheck = BuildReadinessChecks(nil, fakeRedisClient{ok: false, err: errors.New("timeout")})
	if err := redisCheck(context.Background()); err == nil {
		t.Fatal("expected error from failing redis ping")
	}
}
