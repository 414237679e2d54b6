package application

import (
	"time"

	"github.com/freight-platform/pricing-service/internal/domain"
)

// ServiceLineInput is one requested service line. Service key, unit and
// currency are free-form here and resolved per line.
type ServiceLineInput struct {
	ID         string  `json:"id" yaml:"id" binding:"required,identifier"`
	ServiceKey string  `json:"serviceKey" yaml:"serviceKey" binding:"max=256"`
	Unit       string  `json:"unit" yaml:"unit" binding:"max=256"`
	Quantity   float64 `json:"quantity" yaml:"quantity"`
	Currency   string  `json:"currency" yaml:"currency" binding:"max=256"`
}

// PriceCaseCommand asks to price a batch of lines for one case
type PriceCaseCommand struct {
	CaseID        string             `json:"-" yaml:"caseId"`
	Lines         []ServiceLineInput `json:"lines" yaml:"lines" binding:"required,min=1,dive"`
	CorrelationID string             `json:"-" yaml:"-"`
}

// GetDecisionsQuery reads the recorded decisions of a case
type GetDecisionsQuery struct {
	CaseID string
}

// PricedLineDTO is the wire form of a priced line
type PricedLineDTO struct {
	ID             string   `json:"id"`
	ServiceKey     string   `json:"serviceKey"`
	Rate           *float64 `json:"rate"`
	Currency       string   `json:"currency"`
	Source         string   `json:"source"`
	Confidence     float64  `json:"confidence"`
	Explanation    string   `json:"explanation"`
	QuantityUsed   *float64 `json:"quantityUsed"`
	UnitUsed       string   `json:"unitUsed"`
	RuleID         *string  `json:"ruleId"`
	ConversionUsed *string  `json:"conversionUsed"`
	Amount         *float64 `json:"amount,omitempty"`
}

// SummaryDTO counts the outcome of a run
type SummaryDTO struct {
	Priced  int `json:"priced"`
	Missing int `json:"missing"`
	Total   int `json:"total"`
}

// PricingResultDTO is the response of a pricing run
type PricingResultDTO struct {
	RunID       string          `json:"runId"`
	CaseID      string          `json:"caseId"`
	PricedAt    time.Time       `json:"pricedAt"`
	PricedLines []PricedLineDTO `json:"pricedLines"`
	Missing     []string        `json:"missing"`
	Summary     SummaryDTO      `json:"summary"`
}

// DecisionDTO is a recorded decision of a case line
type DecisionDTO struct {
	ServiceLineID string        `json:"serviceLineId"`
	RunID         string        `json:"runId"`
	PricedAt      time.Time     `json:"pricedAt"`
	Line          PricedLineDTO `json:"line"`
}

// DecisionsDTO lists the recorded decisions of a case
type DecisionsDTO struct {
	CaseID    string        `json:"caseId"`
	Decisions []DecisionDTO `json:"decisions"`
}

// ToPricedLineDTO converts a domain line to its wire form
func ToPricedLineDTO(l domain.PricedLine) PricedLineDTO {
	dto := PricedLineDTO{
		ID:             l.ID,
		ServiceKey:     l.ServiceKey,
		Currency:       l.Currency,
		Source:         l.Source,
		Confidence:     l.Confidence,
		Explanation:    l.Explanation,
		QuantityUsed:   l.QuantityUsed,
		UnitUsed:       l.UnitUsed,
		RuleID:         l.RuleID,
		ConversionUsed: l.ConversionUsed,
	}
	if l.Rate != nil {
		rate := l.Rate.InexactFloat64()
		dto.Rate = &rate
	}
	if l.Amount != nil {
		amount := l.Amount.InexactFloat64()
		dto.Amount = &amount
	}
	return dto
}

// ToPricingResultDTO converts a finished run
func ToPricingResultDTO(run *domain.PricingRun) *PricingResultDTO {
	lines := make([]PricedLineDTO, len(run.PricedLines))
	for i, l := range run.PricedLines {
		lines[i] = ToPricedLineDTO(l)
	}
	missing := run.Missing
	if missing == nil {
		missing = []string{}
	}
	summary := run.Summary()

	return &PricingResultDTO{
		RunID:       run.RunID,
		CaseID:      run.CaseID,
		PricedAt:    run.PricedAt,
		PricedLines: lines,
		Missing:     missing,
		Summary:     SummaryDTO{Priced: summary.Priced, Missing: summary.Missing, Total: summary.Total},
	}
}

// ToDecisionsDTO converts stored decisions
func ToDecisionsDTO(caseID string, decisions []domain.PricingDecision) *DecisionsDTO {
	out := &DecisionsDTO{CaseID: caseID, Decisions: make([]DecisionDTO, len(decisions))}
	for i, d := range decisions {
		out.Decisions[i] = DecisionDTO{
			ServiceLineID: d.Line.ID,
			RunID:         d.RunID,
			PricedAt:      d.PricedAt,
			Line:          ToPricedLineDTO(d.Line),
		}
	}
	return out
}

func toLineRequests(lines []ServiceLineInput) []domain.ServiceLineRequest {
	out := make([]domain.ServiceLineRequest, len(lines))
	for i, l := range lines {
		out[i] = domain.ServiceLineRequest{
			ID:         l.ID,
			ServiceKey: l.ServiceKey,
			Unit:       l.Unit,
			Quantity:   l.Quantity,
			Currency:   l.Currency,
		}
	}
	return out
}
