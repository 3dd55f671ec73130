package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quieteye/quieteye-stack/ingest/internal/metrics"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "quieteye:ratelimit:"

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// slidingWindow drops entries older than the window, then admits the
// request if fewer than limit remain. Members are unique per call so that
// requests landing on the same nanosecond are counted separately.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local member = ARGV[4]
	local ttl = tonumber(ARGV[5])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('EXPIRE', key, ttl)
		return 1
	end
	return 0
`)

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
	seq    atomic.Uint64
}

// NewRedisRateLimiter connects to redisURL and returns a sliding-window
// limiter admitting limit requests per key within window.
func NewRedisRateLimiter(redisURL string, limit int, window time.Duration) (RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisRateLimiter(client, limit, window, time.Now), nil
}

func newRedisRateLimiter(client *redis.Client, limit int, window time.Duration, now func() time.Time) *redisRateLimiter {
	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    now,
	}
}

// Allow implements sliding window rate limiting using Redis.
func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	member := strconv.FormatInt(now, 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10)
	ttl := int64(r.window.Seconds()) + 1

	result, err := slidingWindow.Run(ctx, r.client,
		[]string{KeyPrefix + key},
		now, windowStart, r.limit, member, ttl,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed := result == 1
	if !allowed {
		metrics.RateLimitHits.Inc()
	}
	return allowed, nil
}

func (r *redisRateLimiter) Close() error {
	return r.client.Close()
}

// NoOpRateLimiter always allows requests (for testing or disabled rate limiting)
type NoOpRateLimiter struct{}

func (n *NoOpRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (n *NoOpRateLimiter) Close() error {
	return nil
}

// DeviceKey builds the limiter key for an edge device. Devices are scoped
// by site so identical device IDs at different sites do not share a budget.
// The site ID is length-prefixed, so IDs containing the separator cannot
// collide: ("a/b", "c") and ("a", "b/c") map to different keys.
func DeviceKey(siteID, deviceID string) string {
	return strconv.Itoa(len(siteID)) + ":" + siteID + "/" + deviceID
}
