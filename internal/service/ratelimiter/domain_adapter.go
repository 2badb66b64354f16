package ratelimiter

import (
	"context"
	"time"
)

// DomainAdapter narrows RedisLuaLimiter's int64 cost to the domain
// package's RateLimiter port (int cost), so the HTTP layer can depend on
// domain.RateLimiter without importing the Redis client package directly.
type DomainAdapter struct {
	Limiter Limiter
}

// NewDomainAdapter wraps limiter for use as a domain.RateLimiter.
func NewDomainAdapter(limiter Limiter) DomainAdapter {
	return DomainAdapter{Limiter: limiter}
}

// Allow implements domain.RateLimiter.
func (a DomainAdapter) Allow(ctx context.Context, key string, cost int) (bool, time.Duration, error) {
	if a.Limiter == nil {
		return true, 0, nil
	}
	return a.Limiter.Allow(ctx, key, int64(cost))
}
