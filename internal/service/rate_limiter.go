package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prperemyshlev/contacts-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// RateLimitError is returned by Allow when the limit is exhausted
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded, try again in %v", e.Limit, e.RetryAfter)
}

// RateLimiter handles rate limiting using a Redis sliding window log
type RateLimiter struct {
	redis *database.Redis
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis, now: time.Now}
}

// Allow records a request for key and reports whether it fits in the window.
// A denied request returns false with a *RateLimitError.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	redisKey := rateLimitKey(key)

	count, err := r.prune(ctx, redisKey, now.Add(-window))
	if err != nil {
		return false, err
	}

	if count >= int64(limit) {
		retryAfter := window
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestTime := time.Unix(int64(oldest[0].Score), 0)
			retryAfter = window - now.Sub(oldestTime)
		}
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return false, &RateLimitError{Limit: limit, RetryAfter: retryAfter.Round(time.Second)}
	}

	member := fmt.Sprintf("%d-%d", now.UnixNano(), count)
	err = r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	// Expiry failure does not fail the request
	_ = r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err()

	return true, nil
}

// Remaining returns the number of requests still allowed for key in the current window
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := r.prune(ctx, rateLimitKey(key), r.now().Add(-window))
	if err != nil {
		return 0, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// prune drops entries older than windowStart and returns how many are left
func (r *RateLimiter) prune(ctx context.Context, redisKey string, windowStart time.Time) (int64, error) {
	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart.Unix(), 10)).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	return count, nil
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}
