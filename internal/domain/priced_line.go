package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source tags of lines that could not be priced
const (
	SourceUnknownService  = "unknown_service"
	SourceInvalidCurrency = "invalid_currency"
	SourceInvalidQuantity = "invalid_quantity"
	SourceMissingQuantity = "missing_quantity"
	SourceNoMatch         = "no_match"
)

// Bounds of the caller-supplied quantity
const (
	MinRequestQuantity = 0
	MaxRequestQuantity = 10000
)

// ServiceLineRequest is one line the caller asks to price
type ServiceLineRequest struct {
	ID         string
	ServiceKey string
	Unit       string
	Quantity   float64
	Currency   string
}

// PricedLine is the pricing decision for one requested line. A nil Rate
// means the line could not be priced and Source tells why.
type PricedLine struct {
	ID             string           `json:"id"`
	ServiceKey     string           `json:"serviceKey"`
	Rate           *decimal.Decimal `json:"rate"`
	Currency       string           `json:"currency"`
	Source         string           `json:"source"`
	Confidence     float64          `json:"confidence"`
	Explanation    string           `json:"explanation"`
	QuantityUsed   *float64         `json:"quantityUsed"`
	UnitUsed       string           `json:"unitUsed"`
	RuleID         *string          `json:"ruleId"`
	ConversionUsed *string          `json:"conversionUsed"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	MatchScore     int              `json:"matchScore,omitempty"`
	RateCardID     *string          `json:"rateCardId,omitempty"`
}

// IsPriced reports whether a rate was resolved
func (l PricedLine) IsPriced() bool {
	return l.Rate != nil
}

// NewUnpricedLine builds the line of a terminal failure state
func NewUnpricedLine(req ServiceLineRequest, source, explanation string) PricedLine {
	return PricedLine{
		ID:          req.ID,
		ServiceKey:  req.ServiceKey,
		Currency:    collapse(req.Currency),
		Source:      source,
		Explanation: explanation,
		UnitUsed:    string(NormalizeUnit(req.Unit)),
	}
}

// LineAmount is rate times quantity, raised to minCharge when that is higher
func LineAmount(rate decimal.Decimal, qty float64, minCharge *decimal.Decimal) decimal.Decimal {
	amount := rate.Mul(decimal.NewFromFloat(qty))
	if minCharge != nil && minCharge.GreaterThan(amount) {
		return *minCharge
	}
	return amount
}

// PricingDecision is the persisted latest decision for one case line
type PricingDecision struct {
	CaseID   string     `json:"caseId"`
	TenantID string     `json:"tenantId,omitempty"`
	RunID    string     `json:"runId"`
	PricedAt time.Time  `json:"pricedAt"`
	Line     PricedLine `json:"line"`
}

// PricingSummary counts the outcome of a run
type PricingSummary struct {
	Priced  int `json:"priced"`
	Missing int `json:"missing"`
	Total   int `json:"total"`
}

// PricingRun is the full result of pricing one batch
type PricingRun struct {
	RunID       string
	CaseID      string
	TenantID    string
	PricedAt    time.Time
	PricedLines []PricedLine
	Missing     []string
}

// Summary counts priced and missing lines
func (r *PricingRun) Summary() PricingSummary {
	s := PricingSummary{Total: len(r.PricedLines)}
	for _, l := range r.PricedLines {
		if l.IsPriced() {
			s.Priced++
		}
	}
	s.Missing = s.Total - s.Priced
	return s
}
