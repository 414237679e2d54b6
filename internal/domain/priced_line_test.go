package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineAmount(t *testing.T) {
	rate := decimal.RequireFromString("12500.50")

	assert.True(t, LineAmount(rate, 4, nil).Equal(decimal.RequireFromString("50002")))

	minCharge := decimal.NewFromInt(60000)
	assert.True(t, LineAmount(rate, 4, &minCharge).Equal(minCharge))

	low := decimal.NewFromInt(100)
	assert.True(t, LineAmount(rate, 2, &low).Equal(decimal.RequireFromString("25001")))
}

func TestNewUnpricedLine(t *testing.T) {
	line := NewUnpricedLine(ServiceLineRequest{ID: "l1", ServiceKey: "gift_wrap", Unit: "kgs", Currency: " fcfa"}, SourceUnknownService, "unknown service key")

	assert.False(t, line.IsPriced())
	assert.Nil(t, line.Rate)
	assert.Equal(t, "l1", line.ID)
	assert.Equal(t, "gift_wrap", line.ServiceKey)
	assert.Equal(t, "FCFA", line.Currency)
	assert.Equal(t, "KG", line.UnitUsed)
	assert.Equal(t, SourceUnknownService, line.Source)
}

func TestPricingRunSummary(t *testing.T) {
	rate := decimal.NewFromInt(10)
	run := &PricingRun{PricedLines: []PricedLine{{ID: "a", Rate: &rate}, {ID: "b"}, {ID: "c"}}}

	assert.Equal(t, PricingSummary{Priced: 1, Missing: 2, Total: 3}, run.Summary())
}

func TestNewRuleSnapshot(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	expired := now.AddDate(0, -1, 0)
	cards := []RateCard{card("live"), card("expired", func(c *RateCard) { c.EffectiveTo = &expired })}
	rules := []QuantityRule{{ID: "r1", ServiceKey: ServiceTerminalHandling, Basis: BasisEVP}}

	snap := NewRuleSnapshot(rules, []UnitConversion{{ContainerType: "40 HC", EVPFactor: 2}}, cards, now)

	require.Len(t, snap.RateCards, 1)
	assert.Equal(t, "live", snap.RateCards[0].ID)
	require.NotNil(t, snap.Rule(ServiceTerminalHandling))
	assert.Nil(t, snap.Rule(ServiceDocumentation))
	f, ok := snap.Conversions.Factor("40hc")
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)

	rules[0].Basis = BasisFlat
	assert.Equal(t, BasisEVP, snap.Rule(ServiceTerminalHandling).Basis)
}

func TestDecisionsRecordedEvent(t *testing.T) {
	at := time.Now()
	evt := NewDecisionsRecordedEvent(&PricingRun{RunID: "r", CaseID: "c", PricedAt: at, Missing: []string{"documentation"}})

	assert.Equal(t, "freight.pricing.decisions-recorded", evt.EventType())
	assert.Equal(t, at, evt.OccurredAt())
	assert.Equal(t, []string{"documentation"}, evt.Missing)
}
