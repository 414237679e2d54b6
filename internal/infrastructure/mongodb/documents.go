package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/freight-platform/pricing-service/internal/domain"
	pricingmongo "github.com/freight-platform/pricing-service/pkg/mongodb"
)

// Collection names
const (
	CollectionCases           = "cases"
	CollectionQuantityRules   = "quantity_rules"
	CollectionUnitConversions = "unit_conversions"
	CollectionRateCards       = "rate_cards"
	CollectionTariffs         = "tariffs"
	CollectionDecisions       = "pricing_decisions"
)

// rateCardDocument stores money as Decimal128
type rateCardDocument struct {
	ID         string               `bson:"rateCardId"`
	ServiceKey string               `bson:"serviceKey"`
	Scope      string               `bson:"scope"`
	Unit       string               `bson:"unit"`
	Currency   string               `bson:"currency"`
	Value      primitive.Decimal128 `bson:"value"`
	Source     string               `bson:"source,omitempty"`
	Confidence float64              `bson:"confidence"`

	ContainerType      *string `bson:"containerType,omitempty"`
	Corridor           *string `bson:"corridor,omitempty"`
	OriginPort         *string `bson:"originPort,omitempty"`
	DestinationPort    *string `bson:"destinationPort,omitempty"`
	OriginCountry      *string `bson:"originCountry,omitempty"`
	DestinationCountry *string `bson:"destinationCountry,omitempty"`

	EffectiveFrom *time.Time            `bson:"effectiveFrom,omitempty"`
	EffectiveTo   *time.Time            `bson:"effectiveTo,omitempty"`
	MinCharge     *primitive.Decimal128 `bson:"minCharge,omitempty"`
}

func newRateCardDocument(c domain.RateCard) (rateCardDocument, error) {
	value, err := pricingmongo.DecimalToBSON(c.Value)
	if err != nil {
		return rateCardDocument{}, fmt.Errorf("rate card %s: %w", c.ID, err)
	}
	doc := rateCardDocument{
		ID:                 c.ID,
		ServiceKey:         string(c.ServiceKey),
		Scope:              string(c.Scope),
		Unit:               c.Unit,
		Currency:           c.Currency,
		Value:              value,
		Source:             c.Source,
		Confidence:         c.Confidence,
		ContainerType:      c.ContainerType,
		Corridor:           c.Corridor,
		OriginPort:         c.OriginPort,
		DestinationPort:    c.DestinationPort,
		OriginCountry:      c.OriginCountry,
		DestinationCountry: c.DestinationCountry,
		EffectiveFrom:      c.EffectiveFrom,
		EffectiveTo:        c.EffectiveTo,
	}
	if c.MinCharge != nil {
		minCharge, err := pricingmongo.DecimalToBSON(*c.MinCharge)
		if err != nil {
			return rateCardDocument{}, fmt.Errorf("rate card %s: %w", c.ID, err)
		}
		doc.MinCharge = &minCharge
	}
	return doc, nil
}

func (d rateCardDocument) toDomain() (domain.RateCard, error) {
	value, err := pricingmongo.DecimalFromBSON(d.Value)
	if err != nil {
		return domain.RateCard{}, fmt.Errorf("rate card %s: %w", d.ID, err)
	}
	card := domain.RateCard{
		ID:                 d.ID,
		ServiceKey:         domain.ServiceKey(d.ServiceKey),
		Scope:              domain.Scope(d.Scope),
		Unit:               d.Unit,
		Currency:           d.Currency,
		Value:              value,
		Source:             d.Source,
		Confidence:         d.Confidence,
		ContainerType:      d.ContainerType,
		Corridor:           d.Corridor,
		OriginPort:         d.OriginPort,
		DestinationPort:    d.DestinationPort,
		OriginCountry:      d.OriginCountry,
		DestinationCountry: d.DestinationCountry,
		EffectiveFrom:      utcPtr(d.EffectiveFrom),
		EffectiveTo:        utcPtr(d.EffectiveTo),
	}
	if d.MinCharge != nil {
		minCharge, err := pricingmongo.DecimalFromBSON(*d.MinCharge)
		if err != nil {
			return domain.RateCard{}, fmt.Errorf("rate card %s: %w", d.ID, err)
		}
		card.MinCharge = &minCharge
	}
	return card, nil
}

type tariffDocument struct {
	ID             string               `bson:"tariffId"`
	Provider       string               `bson:"provider"`
	Category       string               `bson:"category"`
	Operation      string               `bson:"operation"`
	Classification string               `bson:"classification"`
	Rate           primitive.Decimal128 `bson:"rate"`
	Currency       string               `bson:"currency"`
	EffectiveDate  time.Time            `bson:"effectiveDate"`
	Active         bool                 `bson:"active"`
}

func newTariffDocument(t domain.Tariff) (tariffDocument, error) {
	rate, err := pricingmongo.DecimalToBSON(t.Rate)
	if err != nil {
		return tariffDocument{}, fmt.Errorf("tariff %s: %w", t.ID, err)
	}
	return tariffDocument{
		ID:             t.ID,
		Provider:       t.Provider,
		Category:       t.Category,
		Operation:      t.Operation,
		Classification: t.Classification,
		Rate:           rate,
		Currency:       t.Currency,
		EffectiveDate:  t.EffectiveDate,
		Active:         t.Active,
	}, nil
}

func (d tariffDocument) toDomain() (domain.Tariff, error) {
	rate, err := pricingmongo.DecimalFromBSON(d.Rate)
	if err != nil {
		return domain.Tariff{}, fmt.Errorf("tariff %s: %w", d.ID, err)
	}
	return domain.Tariff{
		ID:             d.ID,
		Provider:       d.Provider,
		Category:       d.Category,
		Operation:      d.Operation,
		Classification: d.Classification,
		Rate:           rate,
		Currency:       d.Currency,
		EffectiveDate:  d.EffectiveDate.UTC(),
		Active:         d.Active,
	}, nil
}

// decisionDocument is one audit row, unique per case and service line
type decisionDocument struct {
	CaseID         string                `bson:"caseId"`
	ServiceLineID  string                `bson:"serviceLineId"`
	TenantID       string                `bson:"tenantId,omitempty"`
	RunID          string                `bson:"runId"`
	PricedAt       time.Time             `bson:"pricedAt"`
	ServiceKey     string                `bson:"serviceKey"`
	Rate           *primitive.Decimal128 `bson:"rate"`
	Currency       string                `bson:"currency"`
	Source         string                `bson:"source"`
	Confidence     float64               `bson:"confidence"`
	Explanation    string                `bson:"explanation"`
	QuantityUsed   *float64              `bson:"quantityUsed"`
	UnitUsed       string                `bson:"unitUsed"`
	RuleID         *string               `bson:"ruleId"`
	ConversionUsed *string               `bson:"conversionUsed"`
	Amount         *primitive.Decimal128 `bson:"amount,omitempty"`
	MatchScore     int                   `bson:"matchScore,omitempty"`
	RateCardID     *string               `bson:"rateCardId,omitempty"`
}

func newDecisionDocument(run *domain.PricingRun, l domain.PricedLine) (decisionDocument, error) {
	rate, err := optionalDecimal(l.Rate)
	if err != nil {
		return decisionDocument{}, fmt.Errorf("line %s rate: %w", l.ID, err)
	}
	amount, err := optionalDecimal(l.Amount)
	if err != nil {
		return decisionDocument{}, fmt.Errorf("line %s amount: %w", l.ID, err)
	}
	return decisionDocument{
		CaseID:         run.CaseID,
		ServiceLineID:  l.ID,
		TenantID:       run.TenantID,
		RunID:          run.RunID,
		PricedAt:       run.PricedAt,
		ServiceKey:     l.ServiceKey,
		Rate:           rate,
		Currency:       l.Currency,
		Source:         l.Source,
		Confidence:     l.Confidence,
		Explanation:    l.Explanation,
		QuantityUsed:   l.QuantityUsed,
		UnitUsed:       l.UnitUsed,
		RuleID:         l.RuleID,
		ConversionUsed: l.ConversionUsed,
		Amount:         amount,
		MatchScore:     l.MatchScore,
		RateCardID:     l.RateCardID,
	}, nil
}

func (d decisionDocument) toDomain() (domain.PricingDecision, error) {
	line := domain.PricedLine{
		ID:             d.ServiceLineID,
		ServiceKey:     d.ServiceKey,
		Currency:       d.Currency,
		Source:         d.Source,
		Confidence:     d.Confidence,
		Explanation:    d.Explanation,
		QuantityUsed:   d.QuantityUsed,
		UnitUsed:       d.UnitUsed,
		RuleID:         d.RuleID,
		ConversionUsed: d.ConversionUsed,
		MatchScore:     d.MatchScore,
		RateCardID:     d.RateCardID,
	}
	if d.Rate != nil {
		rate, err := pricingmongo.DecimalFromBSON(*d.Rate)
		if err != nil {
			return domain.PricingDecision{}, fmt.Errorf("line %s rate: %w", d.ServiceLineID, err)
		}
		line.Rate = &rate
	}
	if d.Amount != nil {
		amount, err := pricingmongo.DecimalFromBSON(*d.Amount)
		if err != nil {
			return domain.PricingDecision{}, fmt.Errorf("line %s amount: %w", d.ServiceLineID, err)
		}
		line.Amount = &amount
	}
	return domain.PricingDecision{
		CaseID:   d.CaseID,
		TenantID: d.TenantID,
		RunID:    d.RunID,
		PricedAt: d.PricedAt.UTC(),
		Line:     line,
	}, nil
}

func optionalDecimal(d *decimal.Decimal) (*primitive.Decimal128, error) {
	if d == nil {
		return nil, nil
	}
	out, err := pricingmongo.DecimalToBSON(*d)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
