package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/pkg/metrics"
)

type countingCatalog struct {
	rules, conversions, cards int
	rulesErr                  error
}

func (c *countingCatalog) QuantityRules(ctx context.Context) ([]domain.QuantityRule, error) {
	c.rules++
	if c.rulesErr != nil {
		return nil, c.rulesErr
	}
	return []domain.QuantityRule{{ID: "QR-THC", ServiceKey: domain.ServiceTerminalHandling, Basis: domain.BasisEVP}}, nil
}

func (c *countingCatalog) UnitConversions(ctx context.Context) ([]domain.UnitConversion, error) {
	c.conversions++
	return []domain.UnitConversion{{ContainerType: "20DV", EVPFactor: 1}}, nil
}

func (c *countingCatalog) RateCardsInForce(ctx context.Context, asOf time.Time) ([]domain.RateCard, error) {
	c.cards++
	return []domain.RateCard{{ID: "RC-1"}}, nil
}

func TestCachedCatalog(t *testing.T) {
	ctx := context.Background()
	next := &countingCatalog{}
	cached := NewCachedCatalog(next, time.Minute, metrics.New(metrics.DefaultConfig("pricing-test")))

	for i := 0; i < 3; i++ {
		rules, err := cached.QuantityRules(ctx)
		require.NoError(t, err)
		require.Len(t, rules, 1)

		conversions, err := cached.UnitConversions(ctx)
		require.NoError(t, err)
		require.Len(t, conversions, 1)

		_, err = cached.RateCardsInForce(ctx, time.Now())
		require.NoError(t, err)
	}

	assert.Equal(t, 1, next.rules)
	assert.Equal(t, 1, next.conversions)
	assert.Equal(t, 3, next.cards, "rate cards are never cached")

	cached.Invalidate()
	_, err := cached.QuantityRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.rules)
}

func TestCachedCatalog_CallersCannotMutateCache(t *testing.T) {
	ctx := context.Background()
	cached := NewCachedCatalog(&countingCatalog{}, time.Minute, nil)

	first, err := cached.QuantityRules(ctx)
	require.NoError(t, err)
	first[0].Basis = domain.BasisFlat

	second, err := cached.QuantityRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BasisEVP, second[0].Basis)

	third, err := cached.QuantityRules(ctx)
	require.NoError(t, err)
	third[0].ID = "changed"
	fourth, _ := cached.QuantityRules(ctx)
	assert.Equal(t, "QR-THC", fourth[0].ID)
}

func TestCachedCatalog_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	next := &countingCatalog{rulesErr: errors.New("primary stepped down")}
	cached := NewCachedCatalog(next, time.Minute, nil)

	_, err := cached.QuantityRules(ctx)
	require.Error(t, err)

	next.rulesErr = nil
	rules, err := cached.QuantityRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, 2, next.rules)
}
