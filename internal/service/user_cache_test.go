package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prperemyshlev/contacts-service/internal/domain"
)

func TestUserCache(t *testing.T) {
	rdb, mr := newTestRedis(t)
	cache := NewUserCache(rdb, 15*time.Minute)
	ctx := context.Background()

	missing, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, missing)

	avatar := "https://img/a.png"
	refresh := "refresh-token"
	user := &domain.User{
		ID:             7,
		Username:       "alice",
		Email:          "alice@example.com",
		HashedPassword: "hash",
		Avatar:         &avatar,
		Confirmed:      true,
		RefreshToken:   &refresh,
		Role:           domain.RoleAdmin,
	}
	require.NoError(t, cache.Set(ctx, user))
	assert.Equal(t, 15*time.Minute, mr.TTL("user:alice"))

	raw, err := mr.Get("user:alice")
	require.NoError(t, err)
	assert.NotContains(t, raw, "hash")
	assert.NotContains(t, raw, refresh)

	cached, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(7), cached.ID)
	assert.Equal(t, avatar, *cached.Avatar)
	assert.True(t, cached.Confirmed)
	assert.Equal(t, domain.RoleAdmin, cached.Role)
	assert.Nil(t, cached.RefreshToken)

	require.NoError(t, cache.Delete(ctx, "alice"))
	assert.False(t, mr.Exists("user:alice"))
}

func TestNilUserCacheIsNoop(t *testing.T) {
	var cache *UserCache
	ctx := context.Background()

	user, err := cache.Get(ctx, "alice")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, cache.Set(ctx, &domain.User{Username: "alice"}))
	assert.NoError(t, cache.Delete(ctx, "alice"))
}
