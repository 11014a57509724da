package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/duynhne/user-service/config"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = NewLogger(config.LoggingConfig{Level: "bogus", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestGetTraceID(t *testing.T) {
	newCtx := func(headers map[string]string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		for k, v := range headers {
			c.Request.Header.Set(k, v)
		}
		return c
	}

	c := newCtx(map[string]string{TraceParentHeader: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"})
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(c))

	c = newCtx(map[string]string{TraceParentHeader: "garbage", TraceIDHeader: "abc"})
	assert.Equal(t, "abc", GetTraceID(c))

	assert.Len(t, GetTraceID(newCtx(nil)), 32)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(LoggingMiddleware(zap.New(core)))
	r.GET("/users/:id", func(c *gin.Context) {
		assert.NotNil(t, GetLoggerFromGinContext(c))
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	req.Header.Set(TraceIDHeader, "trace-1")
	r.ServeHTTP(w, req)
	assert.Equal(t, "trace-1", w.Header().Get(TraceIDHeader))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/users/:id", entries[0].ContextMap()["path"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestIsInfrastructurePath(t *testing.T) {
	assert.True(t, isInfrastructurePath("/health"))
	assert.True(t, isInfrastructurePath("/metrics"))
	assert.False(t, isInfrastructurePath("/api/v1/users"))
}

func TestRecordUserOperation(t *testing.T) {
	before := testutil.ToFloat64(userOperations.WithLabelValues("test_op", "error"))
	RecordUserOperation("test_op", errors.New("boom"))
	RecordUserOperation("test_op", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(userOperations.WithLabelValues("test_op", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(userOperations.WithLabelValues("test_op", "success")), 1.0)
}

func TestServiceFromPodName(t *testing.T) {
	assert.Equal(t, "user", serviceFromPodName("user-75c98b4b9c-kdv2n"))
	assert.Equal(t, "user-service", serviceFromPodName("user-service-abc123-xyz45"))
	assert.Equal(t, "", serviceFromPodName("localhost"))
}
