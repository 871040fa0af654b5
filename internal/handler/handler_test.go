package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/prperemyshlev/contacts-service/internal/dto"
	"github.com/prperemyshlev/contacts-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
	SetupValidator()
}

func TestRespondError_Mapping(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"conflict", service.ErrEmailTaken, http.StatusConflict, service.ErrEmailTaken.Message},
		{"wrapped conflict", fmt.Errorf("create: %w", service.ErrContactEmailTaken), http.StatusConflict, service.ErrContactEmailTaken.Message},
		{"unauthorized", service.ErrBadCredentials, http.StatusUnauthorized, service.ErrBadCredentials.Message},
		{"not found", service.ErrContactNotFound, http.StatusNotFound, "Contact not found"},
		{"bad request", service.ErrVerification, http.StatusBadRequest, "Verification error"},
		{"unprocessable", service.ErrInvalidEmailToken, http.StatusUnprocessableEntity, service.ErrInvalidEmailToken.Message},
		{"validation", service.ValidationError("limit must not be negative"), http.StatusUnprocessableEntity, "limit must not be negative"},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, zap.NewNop(), tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"detail":%q}`, tc.detail), rec.Body.String())
			if tc.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRespondError_LogsInternalErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/contacts", nil)

	respondError(c, zap.New(core), errors.New("pq: connection reset"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Request failed", logs.All()[0].Message)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondError(c, zap.New(core), service.ErrContactNotFound)
	assert.Equal(t, 1, logs.Len())
}

func TestRespondBindingError_UsesJSONNames(t *testing.T) {
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var req dto.ContactRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, locBody, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	body := `{"first_name":"John","last_name":"Smith","email":"bad","phone":"1","birth_date":"1990-05-17"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`, rec.Body.String())
}

func TestBearerToken(t *testing.T) {
	testCases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"Bearer a b", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", tc.header)

		token, ok := bearerToken(c)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}

type stubLimiter struct {
	allowErr  error
	remaining int
	calls     int
}

func (l *stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	l.calls++
	if l.allowErr != nil {
		return false, l.allowErr
	}
	return true, nil
}

func (l *stubLimiter) Remaining(context.Context, string, int, time.Duration) (int, error) {
	return l.remaining, nil
}

func rateLimitedRouter(limiter Limiter, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.GET("/me", RateLimitMiddleware(limiter, 5, time.Minute, RouteIPKey, logger), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rateLimitedRouter(&stubLimiter{remaining: 4}, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("exceeded", func(t *testing.T) {
		limiter := &stubLimiter{allowErr: &service.RateLimitError{Limit: 5, RetryAfter: 42 * time.Second}}
		rec := httptest.NewRecorder()
		rateLimitedRouter(limiter, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.JSONEq(t, `{"detail":"Rate limit exceeded: 5 per 1 minute"}`, rec.Body.String())
	})

	t.Run("limiter unavailable", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		limiter := &stubLimiter{allowErr: errors.New("dial tcp: connection refused")}
		rec := httptest.NewRecorder()
		rateLimitedRouter(limiter, zap.New(core)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, logs.FilterMessage("Rate limiter unavailable").Len())
	})
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"http://localhost:3000"}, []string{"GET", "POST"}, []string{"Authorization"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBaseURL(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "http://api.example.com/api/auth/register", nil)
	assert.Equal(t, "http://api.example.com/", baseURL(c))

	c.Request.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://api.example.com/", baseURL(c))
}

func TestLoggerMiddleware_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(LoggerMiddleware(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) {
		respondError(c, zap.NewNop(), errors.New("boom"))
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok?q=1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "q=1", entries[0].ContextMap()["query"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap()["errors"], "boom")
}
