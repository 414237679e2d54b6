package middleware

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/freight-platform/pricing-service/pkg/errors"
)

// RateLimitConfig bounds request throughput per tenant
type RateLimitConfig struct {
	// Every is the interval at which one request token is refilled
	Every time.Duration
	// Burst is the number of requests allowed at once
	Burst int
	// IdleTTL evicts a tenant bucket that saw no request for this long
	IdleTTL time.Duration
	// MaxTenants caps tracked buckets; tenants beyond it share one bucket
	MaxTenants int
	Logger     *slog.Logger
}

// DefaultRateLimitConfig allows 10 requests per second with bursts of 30
func DefaultRateLimitConfig(logger *slog.Logger) *RateLimitConfig {
	return &RateLimitConfig{
		Every:      100 * time.Millisecond,
		Burst:      30,
		IdleTTL:    10 * time.Minute,
		MaxTenants: 10000,
		Logger:     logger,
	}
}

type tenantLimiters struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	maxTenants int
	buckets    *cache.Cache
	overflow   *rate.Limiter
}

func newTenantLimiters(config *RateLimitConfig) *tenantLimiters {
	ttl := config.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	limit := rate.Every(config.Every)
	return &tenantLimiters{
		limit:      limit,
		burst:      config.Burst,
		maxTenants: config.MaxTenants,
		buckets:    cache.New(ttl, ttl),
		overflow:   rate.NewLimiter(limit, config.Burst),
	}
}

// get returns the bucket for key and extends its idle deadline
func (t *tenantLimiters) get(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.buckets.Get(key); ok {
		l := v.(*rate.Limiter)
		t.buckets.SetDefault(key, l)
		return l
	}
	if t.maxTenants > 0 && t.buckets.ItemCount() >= t.maxTenants {
		return t.overflow
	}
	l := rate.NewLimiter(t.limit, t.burst)
	t.buckets.SetDefault(key, l)
	return l
}

// RateLimit rejects requests with 429 once a tenant exhausts its budget.
// Requests without a tenant header share one bucket. Idle buckets expire.
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRateLimitConfig(slog.Default())
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	buckets := newTenantLimiters(config)

	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenantID)
		limiter := buckets.get(tenantID)

		if !limiter.Allow() {
			r := limiter.Reserve()
			retryAfter := r.Delay()
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))

			logger.Warn("Rate limit exceeded",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"tenant_id", tenantID,
				"client_ip", c.ClientIP(),
			)
			AbortWithAppError(c, errors.ErrRateLimited())
			return
		}

		c.Next()
	}
}
