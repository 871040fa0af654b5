package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetry_ExportsMeters(t *testing.T) {
	meterProvider, handler, err := InitTelemetry("contacts-service-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = meterProvider.Shutdown(context.Background()) })

	counter, err := meterProvider.Meter("test").Int64Counter("test_events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_events_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInitLogger(t *testing.T) {
	for _, env := range []string{"production", "development", "test"} {
		logger, err := InitLogger(env)
		require.NoError(t, err, env)
		assert.NotNil(t, logger, env)
	}
}

func TestPrometheusHandler_NotInitialized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)

	PrometheusHandler(nil)(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
