package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateCard is a priced offer for a service under specific conditions. Nil
// discriminators match any shipment.
type RateCard struct {
	ID         string          `json:"id"`
	ServiceKey ServiceKey      `json:"serviceKey"`
	Scope      Scope           `json:"scope"`
	Unit       string          `json:"unit"`
	Currency   string          `json:"currency"`
	Value      decimal.Decimal `json:"value"`
	Source     string          `json:"source"`
	Confidence float64         `json:"confidence"`

	ContainerType      *string `json:"containerType,omitempty"`
	Corridor           *string `json:"corridor,omitempty"`
	OriginPort         *string `json:"originPort,omitempty"`
	DestinationPort    *string `json:"destinationPort,omitempty"`
	OriginCountry      *string `json:"originCountry,omitempty"`
	DestinationCountry *string `json:"destinationCountry,omitempty"`

	EffectiveFrom *time.Time       `json:"effectiveFrom,omitempty"`
	EffectiveTo   *time.Time       `json:"effectiveTo,omitempty"`
	MinCharge     *decimal.Decimal `json:"minCharge,omitempty"`
}

// InForce reports whether the validity window of the card contains at.
// Both bounds are inclusive.
func (c RateCard) InForce(at time.Time) bool {
	if c.EffectiveFrom != nil && at.Before(*c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && at.After(*c.EffectiveTo) {
		return false
	}
	return true
}

// OutputCurrency is the canonical card currency, or the upper-cased stored
// value when it is not an accepted code.
func (c RateCard) OutputCurrency() string {
	if cur, ok := NormalizeCurrency(c.Currency); ok {
		return string(cur)
	}
	return collapse(c.Currency)
}

// Provenance is the stored source of the card, or its id when none was recorded
func (c RateCard) Provenance() string {
	if c.Source != "" {
		return c.Source
	}
	return "rate_card:" + c.ID
}

// MinDirectConfidence is the lowest confidence reported for a rate card
// match. It stays above FallbackConfidence.
const MinDirectConfidence = 0.9

// LineConfidence is the confidence a priced line carries when this card wins
func (c RateCard) LineConfidence() float64 {
	if c.Confidence > 1 {
		return 1
	}
	if c.Confidence < MinDirectConfidence {
		return MinDirectConfidence
	}
	return c.Confidence
}
