// Package app wires application components and startup helpers.
//
// It provides dependency injection and application initialization.
// The package coordinates between different layers and provides
// a clean application bootstrap process.
package app

import (
	"context"
	"fmt"
)

// Pinger is the minimal interface for a database pool capable of Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPingResult is the minimal result shape a Redis client's PING
// command needs to expose for a readiness check.
type RedisPingResult interface {
	Err() error
}

// RedisClient is the minimal interface a Redis client needs for a
// readiness check, satisfied by *redis.Client via a thin adapter.
type RedisClient interface {
	Ping(ctx context.Context) RedisPingResult
}

// BuildReadinessChecks returns two readiness checks: db and redis. Redis
// backs the shared rate limiter that RateLimitActor draws from; its check
// is skipped (always healthy) when no client is wired.
func BuildReadinessChecks(pool Pinger, redisClient RedisClient) (
	func(ctx context.Context) error,
	func(ctx context.Context) error,
) {
	dbCheck := func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck := func(ctx context.Context) error {
		if redisClient == nil {
			return nil
		}
		return redisClient.Ping(ctx).Err()
	}
	return dbCheck, redisCheck
}
