// Package rate limits requests per client IP on the OAuth endpoints.
// Fixed-window counting; precise enough for abuse protection here.
package rate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result of one Allow check.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// ─── redis (multi-replica deployments) ───

// RedisLimiter counts hits per window with INCR + EXPIRE.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	hits, err := l.Client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, err
	}
	if hits == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
	}

	res := Result{
		Allowed:   hits <= l.Max,
		Remaining: max64(l.Max-hits, 0),
	}
	if !res.Allowed {
		ttl, _ := l.Client.TTL(ctx, redisKey).Result()
		if ttl <= 0 {
			ttl = l.Window
		}
		res.RetryAfter = ttl
	}
	return res, nil
}

// ─── memory (single node) ───

// MemoryLimiter is the in-process counterpart for the memory cache driver.
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string]int64
	window time.Time
	max    int64
	span   time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		hits: make(map[string]int64),
		max:  int64(max),
		span: window,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	winStart := now.Truncate(l.span)
	if !winStart.Equal(l.window) {
		l.window = winStart
		l.hits = make(map[string]int64)
	}

	l.hits[key]++
	hits := l.hits[key]

	res := Result{
		Allowed:   hits <= l.max,
		Remaining: max64(l.max-hits, 0),
	}
	if !res.Allowed {
		res.RetryAfter = l.span - now.Sub(winStart)
	}
	return res, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
