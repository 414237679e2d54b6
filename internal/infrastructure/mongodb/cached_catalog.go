package mongodb

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/pkg/metrics"
)

const (
	cacheKeyRules       = "quantity_rules"
	cacheKeyConversions = "unit_conversions"
)

// CachedCatalog caches the rule and conversion tables of a catalog. Rate
// cards are always read through because their validity depends on time.
type CachedCatalog struct {
	next    domain.RuleCatalog
	cache   *cache.Cache
	metrics *metrics.Metrics
}

// NewCachedCatalog wraps next with a ttl cache. m may be nil.
func NewCachedCatalog(next domain.RuleCatalog, ttl time.Duration, m *metrics.Metrics) *CachedCatalog {
	return &CachedCatalog{
		next:    next,
		cache:   cache.New(ttl, 2*ttl),
		metrics: m,
	}
}

// QuantityRules returns a copy of the cached rules
func (c *CachedCatalog) QuantityRules(ctx context.Context) ([]domain.QuantityRule, error) {
	if v, ok := c.cache.Get(cacheKeyRules); ok {
		c.record(cacheKeyRules, true)
		return append([]domain.QuantityRule(nil), v.([]domain.QuantityRule)...), nil
	}
	c.record(cacheKeyRules, false)

	rules, err := c.next.QuantityRules(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(cacheKeyRules, append([]domain.QuantityRule(nil), rules...))
	return rules, nil
}

// UnitConversions returns a copy of the cached conversions
func (c *CachedCatalog) UnitConversions(ctx context.Context) ([]domain.UnitConversion, error) {
	if v, ok := c.cache.Get(cacheKeyConversions); ok {
		c.record(cacheKeyConversions, true)
		return append([]domain.UnitConversion(nil), v.([]domain.UnitConversion)...), nil
	}
	c.record(cacheKeyConversions, false)

	conversions, err := c.next.UnitConversions(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(cacheKeyConversions, append([]domain.UnitConversion(nil), conversions...))
	return conversions, nil
}

// RateCardsInForce always reads through
func (c *CachedCatalog) RateCardsInForce(ctx context.Context, asOf time.Time) ([]domain.RateCard, error) {
	return c.next.RateCardsInForce(ctx, asOf)
}

// Invalidate drops the cached tables
func (c *CachedCatalog) Invalidate() {
	c.cache.Flush()
}

func (c *CachedCatalog) record(table string, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCatalogCacheLookup(table, hit)
	}
}
