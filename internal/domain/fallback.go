package domain

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FallbackConfidence is the fixed confidence of a tariff fallback, below any
// direct rate card match.
const FallbackConfidence = 0.85

// FallbackSourcePrefix prefixes the source of lines priced from the tariff table
const FallbackSourcePrefix = "tariff_fallback:"

// Tariff is a row of a provider-scoped secondary tariff table
type Tariff struct {
	ID             string          `json:"id"`
	Provider       string          `json:"provider"`
	Category       string          `json:"category"`
	Operation      string          `json:"operation"`
	Classification string          `json:"classification"`
	Rate           decimal.Decimal `json:"rate"`
	Currency       string          `json:"currency"`
	EffectiveDate  time.Time       `json:"effectiveDate"`
	Active         bool            `json:"active"`
}

// TariffQuery selects active tariff rows effective at AsOf
type TariffQuery struct {
	Category  string
	Operation string
	AsOf      time.Time
}

// TariffRepository reads the secondary tariff table
type TariffRepository interface {
	// FindActive returns active rows of the category and operation whose
	// effective date is not after AsOf.
	FindActive(ctx context.Context, query TariffQuery) ([]Tariff, error)
}

// FallbackResult is a rate resolved from the tariff table
type FallbackResult struct {
	Rate        decimal.Decimal
	Currency    string
	Source      string
	Confidence  float64
	Explanation string
	TariffID    string
}

// SelectTariff picks the tariff for the shipment: the most recent row whose
// classification names the first container's type or size, else the most
// recent row. It returns nil when no row is usable.
func SelectTariff(rows []Tariff, pctx PricingContext, asOf time.Time) (*Tariff, bool) {
	usable := make([]Tariff, 0, len(rows))
	for _, t := range rows {
		if !t.Active || t.EffectiveDate.After(asOf) || !t.Rate.IsPositive() {
			continue
		}
		usable = append(usable, t)
	}
	if len(usable) == 0 {
		return nil, false
	}

	sort.SliceStable(usable, func(i, j int) bool {
		if !usable[i].EffectiveDate.Equal(usable[j].EffectiveDate) {
			return usable[i].EffectiveDate.After(usable[j].EffectiveDate)
		}
		return usable[i].ID < usable[j].ID
	})

	if len(pctx.Containers) > 0 {
		for i := range usable {
			if classificationMatches(usable[i].Classification, pctx.Containers[0]) {
				return &usable[i], true
			}
		}
	}
	return &usable[0], false
}

func classificationMatches(classification string, c Container) bool {
	text := strings.ToUpper(classification)
	if strings.Contains(NormalizeContainerType(text), c.Type) {
		return true
	}
	size := c.NominalSizeFeet()
	if size == 0 {
		return false
	}
	n := strconv.Itoa(size)
	for _, form := range []string{n + "'", n + " PIEDS", n + "PIEDS", n + "FT", n + " FT", n + " FEET"} {
		if strings.Contains(text, form) {
			return true
		}
	}
	return false
}

// FallbackResolver prices allow-listed services from the tariff table
type FallbackResolver struct {
	tariffs TariffRepository
}

// NewFallbackResolver creates a resolver over tariffs
func NewFallbackResolver(tariffs TariffRepository) *FallbackResolver {
	return &FallbackResolver{tariffs: tariffs}
}

// FindFallback looks up a tariff for key as of time.Now
func (r *FallbackResolver) FindFallback(ctx context.Context, key ServiceKey, pctx PricingContext) (*FallbackResult, error) {
	return r.FindFallbackAt(ctx, key, pctx, time.Now().UTC())
}

// FindFallbackAt looks up a tariff for key as of asOf. A nil result with a
// nil error means the service has no applicable fallback.
func (r *FallbackResolver) FindFallbackAt(ctx context.Context, key ServiceKey, pctx PricingContext, asOf time.Time) (*FallbackResult, error) {
	if !key.HasFallback() {
		return nil, nil
	}
	operation := pctx.Scope.TariffOperation()
	if operation == "" {
		return nil, nil
	}

	rows, err := r.tariffs.FindActive(ctx, TariffQuery{
		Category:  key.TariffCategory(),
		Operation: operation,
		AsOf:      asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("tariff lookup for %s: %w", key, err)
	}

	t, classified := SelectTariff(rows, pctx, asOf)
	if t == nil {
		return nil, nil
	}

	how := "most recent entry"
	if classified {
		how = fmt.Sprintf("classification %q", t.Classification)
	}
	currency := collapse(t.Currency)
	if cur, ok := NormalizeCurrency(t.Currency); ok {
		currency = string(cur)
	}

	return &FallbackResult{
		Rate:       t.Rate,
		Currency:   currency,
		Source:     FallbackSourcePrefix + t.Provider,
		Confidence: FallbackConfidence,
		Explanation: fmt.Sprintf("tariff fallback %s %s/%s effective %s (%s)",
			t.Provider, t.Category, t.Operation, t.EffectiveDate.Format("2006-01-02"), how),
		TariffID: t.ID,
	}, nil
}
