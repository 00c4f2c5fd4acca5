package http

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// RateLimiter implements a token bucket limiter keyed by client identifier. Buckets idle for
// longer than the TTL are evicted by the cache janitor.
type RateLimiter struct {
	mu         sync.Mutex
	clients    *cache.Cache
	maxTokens  float64
	refillRate float64
	now        func() time.Time
}

// NewRateLimiter constructs a rate limiter with the provided settings.
func NewRateLimiter(maxTokens int, refillPerSecond float64, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		clients:    cache.New(ttl, ttl),
		maxTokens:  float64(maxTokens),
		refillRate: refillPerSecond,
		now:        time.Now,
	}
}

// Allow consumes a token for the provided key if possible.
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	client := &bucket{tokens: rl.maxTokens, last: now}
	if item, ok := rl.clients.Get(key); ok {
		client = item.(*bucket)
	}
	defer rl.clients.SetDefault(key, client)

	if elapsed := now.Sub(client.last).Seconds(); elapsed > 0 {
		client.tokens = min(client.tokens+elapsed*rl.refillRate, rl.maxTokens)
		client.last = now
	}

	if client.tokens < 1 {
		return false
	}

	client.tokens--
	return true
}
