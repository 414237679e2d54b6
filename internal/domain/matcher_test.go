package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func card(id string, mutate ...func(*RateCard)) RateCard {
	c := RateCard{
		ID:         id,
		ServiceKey: ServiceTerminalHandling,
		Scope:      ScopeImport,
		Unit:       "EVP",
		Currency:   "XOF",
		Value:      decimal.NewFromInt(100000),
		Source:     "catalog",
		Confidence: 0,
	}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

func importContext() PricingContext {
	return PricingContext{
		Scope:      ScopeImport,
		Containers: []Container{{Type: "40HC", Quantity: 1}},
		Corridor:   strPtr("ABJ-BKO"),
	}
}

func TestScoreRateCard(t *testing.T) {
	tests := []struct {
		name     string
		card     RateCard
		unit     Unit
		currency Currency
		airMode  bool
		wantOK   bool
		want     int
		matched  bool
	}{
		{
			name:     "bare pass on mandatory filters",
			card:     card("a"),
			unit:     UnitEVP,
			currency: CurrencyEUR,
			wantOK:   true,
			want:     40,
		},
		{
			name:     "currency alias counts as match",
			card:     card("a", func(c *RateCard) { c.Currency = "fcfa" }),
			unit:     UnitEVP,
			currency: CurrencyXOF,
			wantOK:   true,
			want:     45,
			matched:  true,
		},
		{
			name:     "container and corridor match",
			card:     card("a", func(c *RateCard) { c.ContainerType = strPtr("40hc"); c.Corridor = strPtr("abj-bko") }),
			unit:     UnitEVP,
			currency: CurrencyXOF,
			wantOK:   true,
			want:     85,
			matched:  true,
		},
		{
			name:     "container and corridor mismatch",
			card:     card("a", func(c *RateCard) { c.ContainerType = strPtr("20DV"); c.Corridor = strPtr("DKR-BKO") }),
			unit:     UnitEVP,
			currency: CurrencyEUR,
			wantOK:   true,
			want:     25,
		},
		{
			name:     "confidence adds up to five",
			card:     card("a", func(c *RateCard) { c.Confidence = 0.9 }),
			unit:     UnitEVP,
			currency: CurrencyEUR,
			wantOK:   true,
			want:     45,
		},
		{
			name:     "confidence above one is capped",
			card:     card("a", func(c *RateCard) { c.Confidence = 3 }),
			unit:     UnitEVP,
			currency: CurrencyEUR,
			wantOK:   true,
			want:     45,
		},
		{
			name:     "unit spelled differently still matches",
			card:     card("a", func(c *RateCard) { c.Unit = "conteneurs" }),
			unit:     UnitEVP,
			currency: CurrencyEUR,
			wantOK:   true,
			want:     40,
		},
		{
			name:   "unit mismatch is skipped",
			card:   card("a", func(c *RateCard) { c.Unit = "TONNE" }),
			unit:   UnitEVP,
			wantOK: false,
		},
		{
			name:   "scope mismatch is skipped",
			card:   card("a", func(c *RateCard) { c.Scope = ScopeExport }),
			unit:   UnitEVP,
			wantOK: false,
		},
		{
			name:   "other service is skipped",
			card:   card("a", func(c *RateCard) { c.ServiceKey = ServiceDocumentation }),
			unit:   UnitEVP,
			wantOK: false,
		},
		{
			name:    "container card excluded in air mode",
			card:    card("a", func(c *RateCard) { c.ContainerType = strPtr("40HC") }),
			unit:    UnitEVP,
			airMode: true,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScoreRateCard(tt.card, ServiceTerminalHandling, importContext(), tt.unit, tt.currency, tt.airMode)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, got.Points)
			assert.Equal(t, tt.matched, got.DiscriminatorMatched)
		})
	}
}

func TestScoreRateCard_ContextWithoutScope(t *testing.T) {
	c := card("a", func(c *RateCard) { c.Scope = "" })
	_, ok := ScoreRateCard(c, ServiceTerminalHandling, PricingContext{}, UnitEVP, CurrencyXOF, false)
	assert.False(t, ok)
}

func TestMatcher_FindBest(t *testing.T) {
	m := NewMatcher(DefaultMatcherConfig())
	generic := card("generic")
	specific := card("specific", func(c *RateCard) { c.ContainerType = strPtr("40HC") })
	wrongUnit := card("tonne", func(c *RateCard) { c.Unit = "TONNE" })

	got := m.FindBest([]RateCard{generic, wrongUnit, specific}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)

	require.NotNil(t, got)
	assert.Equal(t, "specific", got.Card.ID)
	assert.Equal(t, 65, got.Score)
	assert.Contains(t, got.Explanation, "container 40HC")
	assert.Contains(t, got.Explanation, "2 candidates")
}

func TestMatcher_TieBreakIsOrderIndependent(t *testing.T) {
	m := NewMatcher(DefaultMatcherConfig())
	a := card("RC-002", func(c *RateCard) { c.Confidence = 0.5 })
	b := card("RC-001", func(c *RateCard) { c.Confidence = 0.5 })
	c := card("RC-003", func(c *RateCard) { c.Confidence = 0.6 })

	forward := m.FindBest([]RateCard{a, b}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	reverse := m.FindBest([]RateCard{b, a}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	require.NotNil(t, forward)
	require.NotNil(t, reverse)
	assert.Equal(t, "RC-001", forward.Card.ID)
	assert.Equal(t, "RC-001", reverse.Card.ID)

	// 0.6*5 and 0.5*5 both round to 3, so confidence decides
	got := m.FindBest([]RateCard{a, b, c}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	require.NotNil(t, got)
	assert.Equal(t, "RC-003", got.Card.ID)
}

func TestMatcher_MinScore(t *testing.T) {
	mismatched := card("a", func(c *RateCard) { c.ContainerType = strPtr("20DV") })

	m := NewMatcher(DefaultMatcherConfig())
	assert.Nil(t, m.FindBest([]RateCard{mismatched}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false))

	m = NewMatcher(MatcherConfig{MinScore: 30})
	got := m.FindBest([]RateCard{mismatched}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	require.NotNil(t, got)
	assert.Equal(t, 35, got.Score)
}

func TestMatcher_RequireDiscriminatorMatch(t *testing.T) {
	m := NewMatcher(MatcherConfig{MinScore: 40, RequireDiscriminatorMatch: true})
	bare := card("bare", func(c *RateCard) { c.Currency = "EUR" })

	assert.Nil(t, m.FindBest([]RateCard{bare}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false))

	withCurrency := card("xof")
	got := m.FindBest([]RateCard{bare, withCurrency}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	require.NotNil(t, got)
	assert.Equal(t, "xof", got.Card.ID)

	// a confident card without discriminators outranks the currency match on
	// tie-break but must not hide it
	confident := card("confident", func(c *RateCard) { c.Currency = "EUR"; c.Confidence = 1 })
	got = m.FindBest([]RateCard{confident, withCurrency}, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	require.NotNil(t, got)
	assert.Equal(t, "xof", got.Card.ID)
	assert.Equal(t, 45, got.Score)
	assert.Contains(t, got.Explanation, "2 candidates")
}

func TestMatcher_Deterministic(t *testing.T) {
	m := NewMatcher(DefaultMatcherConfig())
	cards := []RateCard{card("x"), card("y"), card("z", func(c *RateCard) { c.Corridor = strPtr("ABJ-BKO") })}

	first := m.FindBest(cards, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, m.FindBest(cards, ServiceTerminalHandling, importContext(), UnitEVP, CurrencyXOF, false))
	}
}

func TestRateCardInForce(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	c := card("a", func(c *RateCard) { c.EffectiveFrom = &from; c.EffectiveTo = &to })

	assert.True(t, c.InForce(from))
	assert.True(t, c.InForce(to))
	assert.False(t, c.InForce(from.Add(-time.Second)))
	assert.False(t, c.InForce(to.Add(time.Second)))
	assert.True(t, card("open").InForce(time.Time{}))
}

func TestRateCardLineConfidence(t *testing.T) {
	tests := []struct {
		stored float64
		want   float64
	}{
		{0, MinDirectConfidence},
		{0.5, MinDirectConfidence},
		{0.95, 0.95},
		{1.4, 1},
	}
	for _, tt := range tests {
		got := card("a", func(c *RateCard) { c.Confidence = tt.stored }).LineConfidence()
		assert.Equal(t, tt.want, got)
		assert.Greater(t, got, FallbackConfidence)
	}
}

func TestRateCardOutputCurrency(t *testing.T) {
	assert.Equal(t, "XOF", card("a", func(c *RateCard) { c.Currency = "F CFA" }).OutputCurrency())
	assert.Equal(t, "XAF", card("a", func(c *RateCard) { c.Currency = "xaf" }).OutputCurrency())
	assert.Equal(t, "rate_card:a", card("a", func(c *RateCard) { c.Source = "" }).Provenance())
}
