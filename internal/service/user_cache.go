package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/contacts-service/internal/domain"
	"github.com/prperemyshlev/contacts-service/pkg/database"
	"github.com/redis/go-redis/v9"
)

// UserCache keeps users resolved from access tokens in Redis.
// The password hash and refresh token are never cached. A nil *UserCache is a valid no-op cache.
type UserCache struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewUserCache creates a new user cache
func NewUserCache(redis *database.Redis, ttl time.Duration) *UserCache {
	return &UserCache{redis: redis, ttl: ttl}
}

// Get returns the cached user, or nil on a miss
func (c *UserCache) Get(ctx context.Context, username string) (*domain.User, error) {
	if c == nil {
		return nil, nil
	}

	data, err := c.redis.Client.Get(ctx, userCacheKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached user: %w", err)
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}

	return &user, nil
}

// Set stores user under its username
func (c *UserCache) Set(ctx context.Context, user *domain.User) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := c.redis.Client.Set(ctx, userCacheKey(user.Username), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}

	return nil
}

// Delete drops the cached user
func (c *UserCache) Delete(ctx context.Context, username string) error {
	if c == nil {
		return nil
	}

	if err := c.redis.Client.Del(ctx, userCacheKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached user: %w", err)
	}

	return nil
}

func userCacheKey(username string) string {
	return "user:" + username
}
