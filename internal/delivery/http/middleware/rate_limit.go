package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"career-coach-backend/internal/delivery/http/response"
	"career-coach-backend/internal/domain"
	"career-coach-backend/pkg/audit"
	"career-coach-backend/pkg/logger"
	"career-coach-backend/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Key extractor, client IP when nil
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool
	// Redis client; the shared pkg/redis client when nil
	Redis *goredis.Client
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// GlobalRateLimitConfig limits every route per client IP. Fails open.
func GlobalRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:ip:",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// ProfileUpdateRateLimitConfig limits profile writes per authenticated caller.
// Must run after AuthMiddleware.
func ProfileUpdateRateLimitConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:profile:",
		KeyFunc: func(c *gin.Context) string {
			if id := c.GetString(string(domain.KeyUserID)); id != "" {
				return id
			}
			return c.ClientIP()
		},
	}
}

// RateLimitMiddleware creates a rate limiting middleware with the given config.
// Uses Redis when available, falls back to in-memory counters when not.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	fallback := newMemoryStore()

	return func(c *gin.Context) {
		fullKey := config.KeyPrefix + config.KeyFunc(c)
		now := time.Now()

		var count int
		var resetAt time.Time

		client := config.Redis
		if client == nil {
			client = redis.Client()
		}
		if client != nil {
			var err error
			count, resetAt, err = checkRateLimitRedis(c.Request.Context(), client, fullKey, config)
			if err != nil {
				logger.Log.Warn("redis rate limit check failed", "key_prefix", config.KeyPrefix, "error", err)
				if config.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
					c.Abort()
					return
				}
				count, resetAt = fallback.hit(fullKey, config.Window, now)
			}
		} else {
			count, resetAt = fallback.hit(fullKey, config.Window, now)
		}

		if count > config.Limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			audit.Default().Log(audit.Event{
				Type:      audit.EventRateLimitTriggered,
				SubjectID: c.GetString(string(domain.KeyUserID)),
				IP:        c.ClientIP(),
				RequestID: c.GetString(RequestIDKey),
				Details:   map[string]string{"path": c.FullPath(), "key_prefix": config.KeyPrefix},
			})

			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		remaining := config.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, config RateLimitConfig) (int, time.Time, error) {
	ttlSeconds := int(config.Window.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

// pruneEvery bounds how often expired in-memory counters are swept
const pruneEvery = 5 * time.Minute

type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// memoryStore is the per-middleware fallback when Redis is unavailable.
// Expired entries are swept lazily on access.
type memoryStore struct {
	mu        sync.Mutex
	entries   map[string]*rateLimitEntry
	lastPrune time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*rateLimitEntry), lastPrune: time.Now()}
}

func (s *memoryStore) hit(key string, window time.Duration, now time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastPrune) > pruneEvery {
		for k, e := range s.entries {
			if now.After(e.resetAt) {
				delete(s.entries, k)
			}
		}
		s.lastPrune = now
	}

	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &rateLimitEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.resetAt
}
