package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/freight-platform/pricing-service/internal/domain"
)

// catalogFile is the YAML layout accepted by the seed command. Money values
// are strings so they keep their exact decimal form.
type catalogFile struct {
	QuantityRules   []quantityRuleEntry   `yaml:"quantityRules"`
	UnitConversions []unitConversionEntry `yaml:"unitConversions"`
	RateCards       []rateCardEntry       `yaml:"rateCards"`
	Tariffs         []tariffEntry         `yaml:"tariffs"`
	Cases           []caseEntry           `yaml:"cases"`
}

type quantityRuleEntry struct {
	ID              string `yaml:"ruleId"`
	ServiceKey      string `yaml:"serviceKey"`
	Basis           string `yaml:"quantityBasis"`
	DefaultUnit     string `yaml:"defaultUnit"`
	RequiresFactKey string `yaml:"requiresFactKey"`
}

type unitConversionEntry struct {
	ContainerType string  `yaml:"containerType"`
	EVPFactor     float64 `yaml:"evpFactor"`
}

type rateCardEntry struct {
	ID                 string  `yaml:"id"`
	ServiceKey         string  `yaml:"serviceKey"`
	Scope              string  `yaml:"scope"`
	Unit               string  `yaml:"unit"`
	Currency           string  `yaml:"currency"`
	Value              string  `yaml:"value"`
	Source             string  `yaml:"source"`
	Confidence         float64 `yaml:"confidence"`
	ContainerType      *string `yaml:"containerType"`
	Corridor           *string `yaml:"corridor"`
	OriginPort         *string `yaml:"originPort"`
	DestinationPort    *string `yaml:"destinationPort"`
	OriginCountry      *string `yaml:"originCountry"`
	DestinationCountry *string `yaml:"destinationCountry"`
	EffectiveFrom      string  `yaml:"effectiveFrom"`
	EffectiveTo        string  `yaml:"effectiveTo"`
	MinCharge          string  `yaml:"minCharge"`
}

type tariffEntry struct {
	ID             string `yaml:"id"`
	Provider       string `yaml:"provider"`
	Category       string `yaml:"category"`
	Operation      string `yaml:"operation"`
	Classification string `yaml:"classification"`
	Rate           string `yaml:"rate"`
	Currency       string `yaml:"currency"`
	EffectiveDate  string `yaml:"effectiveDate"`
	Active         *bool  `yaml:"active"`
}

type caseEntry struct {
	ID       string      `yaml:"caseId"`
	TenantID string      `yaml:"tenantId"`
	Facts    []factEntry `yaml:"facts"`
}

type factEntry struct {
	Key        string `yaml:"key"`
	Value      string `yaml:"value"`
	IsCurrent  *bool  `yaml:"isCurrent"`
	RecordedAt string `yaml:"recordedAt"`
}

// seedData is a catalog file converted to domain values
type seedData struct {
	Rules       []domain.QuantityRule
	Conversions []domain.UnitConversion
	RateCards   []domain.RateCard
	Tariffs     []domain.Tariff
	Cases       []domain.Case
}

func readCatalogFile(path string) (*seedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) (*seedData, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return file.toSeedData()
}

func (f *catalogFile) toSeedData() (*seedData, error) {
	data := &seedData{}

	for i, e := range f.QuantityRules {
		if e.ID == "" || e.ServiceKey == "" || e.Basis == "" {
			return nil, fmt.Errorf("quantityRules[%d]: ruleId, serviceKey and quantityBasis are required", i)
		}
		data.Rules = append(data.Rules, domain.QuantityRule{
			ID:              e.ID,
			ServiceKey:      domain.ServiceKey(strings.ToLower(strings.TrimSpace(e.ServiceKey))),
			Basis:           domain.QuantityBasis(strings.ToUpper(strings.TrimSpace(e.Basis))),
			DefaultUnit:     e.DefaultUnit,
			RequiresFactKey: e.RequiresFactKey,
		})
	}

	for i, e := range f.UnitConversions {
		if e.ContainerType == "" || e.EVPFactor <= 0 {
			return nil, fmt.Errorf("unitConversions[%d]: containerType and a positive evpFactor are required", i)
		}
		data.Conversions = append(data.Conversions, domain.UnitConversion{ContainerType: e.ContainerType, EVPFactor: e.EVPFactor})
	}

	for i, e := range f.RateCards {
		card, err := e.toDomain()
		if err != nil {
			return nil, fmt.Errorf("rateCards[%d] %s: %w", i, e.ID, err)
		}
		data.RateCards = append(data.RateCards, card)
	}

	for i, e := range f.Tariffs {
		t, err := e.toDomain()
		if err != nil {
			return nil, fmt.Errorf("tariffs[%d] %s: %w", i, e.ID, err)
		}
		data.Tariffs = append(data.Tariffs, t)
	}

	for i, e := range f.Cases {
		c, err := e.toDomain()
		if err != nil {
			return nil, fmt.Errorf("cases[%d] %s: %w", i, e.ID, err)
		}
		data.Cases = append(data.Cases, c)
	}

	return data, nil
}

func (e rateCardEntry) toDomain() (domain.RateCard, error) {
	if e.ID == "" || e.ServiceKey == "" {
		return domain.RateCard{}, fmt.Errorf("id and serviceKey are required")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(e.Value))
	if err != nil {
		return domain.RateCard{}, fmt.Errorf("value: %w", err)
	}

	card := domain.RateCard{
		ID:                 e.ID,
		ServiceKey:         domain.ServiceKey(strings.ToLower(strings.TrimSpace(e.ServiceKey))),
		Scope:              domain.Scope(strings.ToLower(strings.TrimSpace(e.Scope))),
		Unit:               e.Unit,
		Currency:           e.Currency,
		Value:              value,
		Source:             e.Source,
		Confidence:         e.Confidence,
		ContainerType:      e.ContainerType,
		Corridor:           e.Corridor,
		OriginPort:         e.OriginPort,
		DestinationPort:    e.DestinationPort,
		OriginCountry:      e.OriginCountry,
		DestinationCountry: e.DestinationCountry,
	}

	if card.EffectiveFrom, err = optionalDate(e.EffectiveFrom); err != nil {
		return domain.RateCard{}, fmt.Errorf("effectiveFrom: %w", err)
	}
	if card.EffectiveTo, err = optionalDate(e.EffectiveTo); err != nil {
		return domain.RateCard{}, fmt.Errorf("effectiveTo: %w", err)
	}
	if e.MinCharge != "" {
		m, err := decimal.NewFromString(strings.TrimSpace(e.MinCharge))
		if err != nil {
			return domain.RateCard{}, fmt.Errorf("minCharge: %w", err)
		}
		card.MinCharge = &m
	}
	return card, nil
}

func (e tariffEntry) toDomain() (domain.Tariff, error) {
	if e.ID == "" || e.Category == "" || e.Operation == "" {
		return domain.Tariff{}, fmt.Errorf("id, category and operation are required")
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(e.Rate))
	if err != nil {
		return domain.Tariff{}, fmt.Errorf("rate: %w", err)
	}
	effective, err := parseDate(e.EffectiveDate)
	if err != nil {
		return domain.Tariff{}, fmt.Errorf("effectiveDate: %w", err)
	}

	return domain.Tariff{
		ID:             e.ID,
		Provider:       e.Provider,
		Category:       strings.ToUpper(strings.TrimSpace(e.Category)),
		Operation:      strings.ToUpper(strings.TrimSpace(e.Operation)),
		Classification: e.Classification,
		Rate:           rate,
		Currency:       e.Currency,
		EffectiveDate:  effective,
		Active:         e.Active == nil || *e.Active,
	}, nil
}

func (e caseEntry) toDomain() (domain.Case, error) {
	if e.ID == "" || e.TenantID == "" {
		return domain.Case{}, fmt.Errorf("caseId and tenantId are required")
	}

	c := domain.Case{ID: e.ID, TenantID: e.TenantID, Facts: make([]domain.Fact, 0, len(e.Facts))}
	for i, f := range e.Facts {
		recorded := time.Time{}
		if f.RecordedAt != "" {
			var err error
			if recorded, err = parseDate(f.RecordedAt); err != nil {
				return domain.Case{}, fmt.Errorf("facts[%d].recordedAt: %w", i, err)
			}
		}
		c.Facts = append(c.Facts, domain.Fact{
			Key:        f.Key,
			Value:      f.Value,
			IsCurrent:  f.IsCurrent == nil || *f.IsCurrent,
			RecordedAt: recorded,
		})
	}
	return c, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates, read as UTC midnight
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
