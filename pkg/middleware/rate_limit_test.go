package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
)

func rateLimitedRouter(burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(&RateLimitConfig{
		Every:  time.Hour,
		Burst:  burst,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func ping(router *gin.Engine, tenantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if tenantID != "" {
		req.Header.Set(HeaderTenantID, tenantID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	router := rateLimitedRouter(2)

	assert.Equal(t, http.StatusOK, ping(router, "agency-1").Code)
	assert.Equal(t, http.StatusOK, ping(router, "agency-1").Code)

	w := ping(router, "agency-1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeRateLimited, body.Code)
	assert.Equal(t, "/ping", body.Path)
}

func TestRateLimit_BucketsPerTenant(t *testing.T) {
	router := rateLimitedRouter(1)

	assert.Equal(t, http.StatusOK, ping(router, "agency-1").Code)
	assert.Equal(t, http.StatusTooManyRequests, ping(router, "agency-1").Code)
	assert.Equal(t, http.StatusOK, ping(router, "agency-2").Code)
	assert.Equal(t, http.StatusOK, ping(router, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, ping(router, "").Code)
}

func TestTenantLimiters_EvictsIdleBuckets(t *testing.T) {
	buckets := newTenantLimiters(&RateLimitConfig{Every: time.Hour, Burst: 1, IdleTTL: 20 * time.Millisecond})

	first := buckets.get("agency-1")
	require.True(t, first.Allow())
	assert.Same(t, first, buckets.get("agency-1"))
	assert.Equal(t, 1, buckets.buckets.ItemCount())

	require.Eventually(t, func() bool {
		return buckets.buckets.ItemCount() == 0
	}, time.Second, 10*time.Millisecond)

	fresh := buckets.get("agency-1")
	assert.NotSame(t, first, fresh)
	assert.True(t, fresh.Allow())
}

func TestTenantLimiters_OverflowSharesOneBucket(t *testing.T) {
	buckets := newTenantLimiters(&RateLimitConfig{Every: time.Hour, Burst: 1, MaxTenants: 2})

	a := buckets.get("agency-1")
	b := buckets.get("agency-2")
	assert.NotSame(t, a, b)

	rotated := buckets.get("agency-3")
	assert.Same(t, rotated, buckets.get("agency-4"))
	assert.True(t, rotated.Allow())
	assert.False(t, buckets.get("agency-5").Allow())
	assert.Equal(t, 2, buckets.buckets.ItemCount())
	assert.Same(t, a, buckets.get("agency-1"))
}
