// Package httpmiddleware holds gin middleware shared by the API routes.
package httpmiddleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether the caller identified by key may make another
// request. retryAfter is a hint for the Retry-After header when denied.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// RateLimit returns gin middleware enforcing l per client IP. Limiter errors
// let the request through.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		ok, retry, err := l.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Printf("rate limit check failed for %s: %v", ip, err)
			c.Next()
			return
		}
		if !ok {
			if retry > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(retry.Seconds()+0.5), 10))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status_code": http.StatusTooManyRequests,
				"ok":          false,
				"error_code":  "RATE_LIMITED",
				"message":     "too many requests",
			})
			return
		}
		c.Next()
	}
}

// TokenBucket is an in-memory limiter for a single API process.
type TokenBucket struct {
	capacity int
	rate     int
	now      func() time.Time
	mu       sync.Mutex
	state    map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewTokenBucket creates a limiter with capacity tokens refilled at perMinute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     perMinute,
		now:      time.Now,
		state:    make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket.
func (l *TokenBucket) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.state[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.state[key] = b
	}
	refill := int(now.Sub(b.last).Minutes() * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false, l.interval(), nil
	}
	b.tokens--
	return true, 0, nil
}

func (l *TokenBucket) interval() time.Duration {
	if l.rate <= 0 {
		return time.Minute
	}
	return time.Minute / time.Duration(l.rate)
}

// RedisWindow counts requests per key in fixed one-minute windows shared by
// every API replica.
type RedisWindow struct {
	client *redis.Client
	limit  int
	prefix string
	now    func() time.Time
}

// NewRedisWindow allows limit requests per key per minute.
func NewRedisWindow(client *redis.Client, limit int) *RedisWindow {
	return &RedisWindow{client: client, limit: limit, prefix: "absensi:ratelimit", now: time.Now}
}

// Allow increments the counter for key in the current window.
func (l *RedisWindow) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	window := now.Truncate(time.Minute)
	k := fmt.Sprintf("%s:%s:%d", l.prefix, key, window.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}
	if incr.Val() > int64(l.limit) {
		return false, window.Add(time.Minute).Sub(now), nil
	}
	return true, 0, nil
}
