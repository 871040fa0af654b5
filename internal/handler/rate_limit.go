package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prperemyshlev/contacts-service/internal/dto"
	"github.com/prperemyshlev/contacts-service/internal/service"
)

// Limiter counts requests per key in a sliding window
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimitMiddleware creates a rate limiting middleware.
// Limiter failures other than an exhausted limit let the request through.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := keyFunc(c)

		allowed, err := limiter.Allow(ctx, key, limit, window)
		if err != nil {
			var limitErr *service.RateLimitError
			if !errors.As(err, &limitErr) {
				logger.Warn("Rate limiter unavailable", zap.String("key", key), zap.Error(err))
				c.Next()
				return
			}

			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limitErr.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Detail: fmt.Sprintf("Rate limit exceeded: %d per %s", limit, describeWindow(window)),
			})
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{Detail: "Rate limit exceeded"})
			return
		}

		remaining, err := limiter.Remaining(ctx, key, limit, window)
		if err == nil {
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}

// IPBasedKey extracts rate limit key from client IP.
// Forwarded headers count only when the engine trusts the sending proxy.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// RouteIPKey limits each route separately per client IP
func RouteIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + IPBasedKey(c)
}

func describeWindow(window time.Duration) string {
	switch window {
	case time.Second:
		return "1 second"
	case time.Minute:
		return "1 minute"
	case time.Hour:
		return "1 hour"
	default:
		return window.String()
	}
}
