package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Fact keys read from the case store
const (
	FactScope              = "service.scope"
	FactContainers         = "cargo.containers"
	FactCorridor           = "routing.corridor"
	FactOriginPort         = "routing.origin_port"
	FactDestinationPort    = "routing.destination_port"
	FactOriginCountry      = "routing.origin_country"
	FactDestinationCountry = "routing.destination_country"
	FactWeightKg           = "cargo.weight_kg"
	FactChargeableWeightKg = "cargo.chargeable_weight_kg"
	FactTransportMode      = "transport.mode"
)

// Fact is one extracted key/value fact about a shipment case. Structured
// values (containers) are JSON encoded.
type Fact struct {
	Key        string    `bson:"key" json:"key"`
	Value      string    `bson:"value" json:"value"`
	IsCurrent  bool      `bson:"isCurrent" json:"isCurrent"`
	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}

// Case is a shipment case as seen by pricing
type Case struct {
	ID       string `bson:"caseId" json:"caseId"`
	TenantID string `bson:"tenantId" json:"tenantId"`
	Facts    []Fact `bson:"facts" json:"facts"`
}

// Container is a group of containers of one normalized type code
type Container struct {
	Type     string `json:"type" bson:"type"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// NominalSizeFeet is the numeric prefix of the type code (40HC -> 40), or
// zero when the code has none.
func (c Container) NominalSizeFeet() int {
	end := 0
	for end < len(c.Type) && c.Type[end] >= '0' && c.Type[end] <= '9' {
		end++
	}
	size, err := strconv.Atoi(c.Type[:end])
	if err != nil {
		return 0
	}
	return size
}

// NormalizeContainerType upper-cases a type code and strips separators, so
// "40' hc" and "40-HC" both become "40HC".
func NormalizeContainerType(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PricingContext is the read-only snapshot of a case's current facts used
// for one pricing run.
type PricingContext struct {
	Scope              Scope       `json:"scope"`
	Containers         []Container `json:"containers"`
	Corridor           *string     `json:"corridor,omitempty"`
	OriginPort         *string     `json:"originPort,omitempty"`
	DestinationPort    *string     `json:"destinationPort,omitempty"`
	OriginCountry      *string     `json:"originCountry,omitempty"`
	DestinationCountry *string     `json:"destinationCountry,omitempty"`
	WeightKg           *float64    `json:"weightKg,omitempty"`
	TransportMode      string      `json:"transportMode,omitempty"`

	factKeys map[string]bool
}

// IsAirMode reports whether the shipment moves by air
func (p PricingContext) IsAirMode() bool {
	return p.TransportMode == "air"
}

// HasFact reports whether a current fact with key was present
func (p PricingContext) HasFact(key string) bool {
	return p.factKeys[key]
}

// BuildPricingContext derives the context from the current facts of a case.
// When a key is recorded more than once the latest recordedAt wins.
// Malformed values are ignored.
func BuildPricingContext(facts []Fact) PricingContext {
	latest := make(map[string]Fact)
	for _, f := range facts {
		if !f.IsCurrent {
			continue
		}
		if prev, ok := latest[f.Key]; ok && !f.RecordedAt.After(prev.RecordedAt) {
			continue
		}
		latest[f.Key] = f
	}

	pctx := PricingContext{factKeys: make(map[string]bool, len(latest))}
	for k := range latest {
		pctx.factKeys[k] = true
	}

	if f, ok := latest[FactScope]; ok {
		pctx.Scope, _ = ParseScope(f.Value)
	}
	if f, ok := latest[FactContainers]; ok {
		pctx.Containers = parseContainers(f.Value)
	}
	pctx.Corridor = optionalString(latest, FactCorridor, strings.ToUpper)
	pctx.OriginPort = optionalString(latest, FactOriginPort, strings.ToUpper)
	pctx.DestinationPort = optionalString(latest, FactDestinationPort, strings.ToUpper)
	pctx.OriginCountry = optionalString(latest, FactOriginCountry, strings.ToUpper)
	pctx.DestinationCountry = optionalString(latest, FactDestinationCountry, strings.ToUpper)

	if w := optionalFloat(latest, FactChargeableWeightKg); w != nil {
		pctx.WeightKg = w
	} else {
		pctx.WeightKg = optionalFloat(latest, FactWeightKg)
	}

	if f, ok := latest[FactTransportMode]; ok {
		pctx.TransportMode = strings.ToLower(strings.TrimSpace(f.Value))
	}

	return pctx
}

func parseContainers(raw string) []Container {
	var parsed []Container
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}

	containers := make([]Container, 0, len(parsed))
	for _, c := range parsed {
		code := NormalizeContainerType(c.Type)
		if code == "" || c.Quantity <= 0 {
			continue
		}
		containers = append(containers, Container{Type: code, Quantity: c.Quantity})
	}
	return containers
}

func optionalString(facts map[string]Fact, key string, norm func(string) string) *string {
	f, ok := facts[key]
	if !ok {
		return nil
	}
	v := norm(strings.TrimSpace(f.Value))
	if v == "" {
		return nil
	}
	return &v
}

func optionalFloat(facts map[string]Fact, key string) *float64 {
	f, ok := facts[key]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
	if err != nil {
		return nil
	}
	return &v
}
