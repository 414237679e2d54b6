package domain

import (
	"time"
)

// QuantityBasis selects how the billable quantity of a service is derived
type QuantityBasis string

const (
	BasisEVP   QuantityBasis = "EVP"
	BasisCount QuantityBasis = "COUNT"
	BasisTonne QuantityBasis = "TONNE"
	BasisKG    QuantityBasis = "KG"
	BasisFlat  QuantityBasis = "FLAT"
)

// IsContainerBased reports whether the basis counts containers
func (b QuantityBasis) IsContainerBased() bool {
	return b == BasisEVP || b == BasisCount
}

// AllowsUnset reports whether the basis may leave the quantity unresolved
// instead of defaulting it. Only such bases honour RequiresFactKey.
func (b QuantityBasis) AllowsUnset() bool {
	return b == BasisKG
}

// QuantityRule is the quantity rule for one service key
type QuantityRule struct {
	ID              string        `bson:"ruleId" json:"ruleId"`
	ServiceKey      ServiceKey    `bson:"serviceKey" json:"serviceKey"`
	Basis           QuantityBasis `bson:"quantityBasis" json:"quantityBasis"`
	DefaultUnit     string        `bson:"defaultUnit,omitempty" json:"defaultUnit,omitempty"`
	RequiresFactKey string        `bson:"requiresFactKey,omitempty" json:"requiresFactKey,omitempty"`
}

// UnitConversion gives the EVP factor of a container type
type UnitConversion struct {
	ContainerType string  `bson:"containerType" json:"containerType"`
	EVPFactor     float64 `bson:"evpFactor" json:"evpFactor"`
}

// ConversionTable maps normalized container type codes to EVP factors
type ConversionTable map[string]float64

// NewConversionTable builds a table from conversion rows. Later rows for the
// same type override earlier ones.
func NewConversionTable(rows []UnitConversion) ConversionTable {
	table := make(ConversionTable, len(rows))
	for _, r := range rows {
		table[NormalizeContainerType(r.ContainerType)] = r.EVPFactor
	}
	return table
}

// Factor returns the EVP factor of containerType
func (t ConversionTable) Factor(containerType string) (float64, bool) {
	f, ok := t[NormalizeContainerType(containerType)]
	return f, ok
}

// RuleSnapshot is the immutable set of tables one pricing run reads
type RuleSnapshot struct {
	Rules       map[ServiceKey]QuantityRule
	Conversions ConversionTable
	RateCards   []RateCard
	AsOf        time.Time
}

// NewRuleSnapshot copies the loaded rows into run-private maps and slices
func NewRuleSnapshot(rules []QuantityRule, conversions []UnitConversion, cards []RateCard, asOf time.Time) *RuleSnapshot {
	byKey := make(map[ServiceKey]QuantityRule, len(rules))
	for _, r := range rules {
		byKey[r.ServiceKey] = r
	}

	inForce := make([]RateCard, 0, len(cards))
	for _, c := range cards {
		if c.InForce(asOf) {
			inForce = append(inForce, c)
		}
	}

	return &RuleSnapshot{
		Rules:       byKey,
		Conversions: NewConversionTable(conversions),
		RateCards:   inForce,
		AsOf:        asOf,
	}
}

// Rule returns the quantity rule for key, or nil
func (s *RuleSnapshot) Rule(key ServiceKey) *QuantityRule {
	r, ok := s.Rules[key]
	if !ok {
		return nil
	}
	return &r
}
