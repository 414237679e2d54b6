package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freight-platform/pricing-service/internal/domain"
)

const sampleCatalog = `
quantityRules:
  - ruleId: QR-THC
    serviceKey: Terminal_Handling
    quantityBasis: evp
unitConversions:
  - containerType: 20DV
    evpFactor: 1
  - containerType: 40HC
    evpFactor: 2
rateCards:
  - id: RC-THC-GEN
    serviceKey: terminal_handling
    scope: Import
    unit: EVP
    currency: XOF
    value: "95000"
    source: catalog:2026
    confidence: 0.9
    effectiveFrom: 2026-01-01
    minCharge: "150000.50"
  - id: RC-TRK-ABJ
    serviceKey: inland_trucking
    scope: import
    unit: VOYAGE
    currency: XOF
    value: "450000"
    corridor: ABJ-BKO
    effectiveTo: 2026-12-31T23:59:59Z
tariffs:
  - id: PAA-THC-2025
    provider: PAA
    category: thc
    operation: import
    classification: "20DV"
    rate: "88000"
    currency: XOF
    effectiveDate: 2025-07-01
  - id: PAA-THC-OLD
    provider: PAA
    category: THC
    operation: IMPORT
    rate: "80000"
    currency: XOF
    effectiveDate: 2024-01-01
    active: false
cases:
  - caseId: CASE-1
    tenantId: agency-1
    facts:
      - key: service.scope
        value: import
        recordedAt: 2026-05-01T08:00:00Z
      - key: cargo.containers
        value: '[{"type":"20DV","quantity":2},{"type":"40HC","quantity":1}]'
      - key: routing.corridor
        value: ABJ-BKO
        isCurrent: false
`

func TestParseCatalog(t *testing.T) {
	data, err := parseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	require.Len(t, data.Rules, 1)
	assert.Equal(t, domain.ServiceTerminalHandling, data.Rules[0].ServiceKey)
	assert.Equal(t, domain.BasisEVP, data.Rules[0].Basis)
	assert.Len(t, data.Conversions, 2)

	require.Len(t, data.RateCards, 2)
	thc := data.RateCards[0]
	assert.Equal(t, domain.ScopeImport, thc.Scope)
	assert.Equal(t, "95000", thc.Value.String())
	require.NotNil(t, thc.EffectiveFrom)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *thc.EffectiveFrom)
	assert.Nil(t, thc.EffectiveTo)
	require.NotNil(t, thc.MinCharge)
	assert.Equal(t, "150000.5", thc.MinCharge.String())

	trk := data.RateCards[1]
	require.NotNil(t, trk.Corridor)
	assert.Equal(t, "ABJ-BKO", *trk.Corridor)
	require.NotNil(t, trk.EffectiveTo)
	assert.Nil(t, trk.MinCharge)

	require.Len(t, data.Tariffs, 2)
	assert.Equal(t, "THC", data.Tariffs[0].Category)
	assert.Equal(t, "IMPORT", data.Tariffs[0].Operation)
	assert.True(t, data.Tariffs[0].Active, "active defaults to true")
	assert.False(t, data.Tariffs[1].Active)

	require.Len(t, data.Cases, 1)
	facts := data.Cases[0].Facts
	require.Len(t, facts, 3)
	assert.True(t, facts[0].IsCurrent)
	assert.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), facts[0].RecordedAt)
	assert.True(t, facts[1].RecordedAt.IsZero())
	assert.False(t, facts[2].IsCurrent)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "rateCards: [",
			wantErr: "parse catalog file",
		},
		{
			name:    "rule without basis",
			yaml:    "quantityRules:\n  - ruleId: QR-1\n    serviceKey: documentation\n",
			wantErr: "quantityRules[0]",
		},
		{
			name:    "zero evp factor",
			yaml:    "unitConversions:\n  - containerType: 20DV\n",
			wantErr: "unitConversions[0]",
		},
		{
			name:    "bad card value",
			yaml:    "rateCards:\n  - id: RC-1\n    serviceKey: documentation\n    value: lots\n",
			wantErr: "rateCards[0] RC-1: value",
		},
		{
			name:    "bad card date",
			yaml:    "rateCards:\n  - id: RC-1\n    serviceKey: documentation\n    value: \"1\"\n    effectiveFrom: 01/02/2026\n",
			wantErr: "effectiveFrom",
		},
		{
			name:    "tariff without date",
			yaml:    "tariffs:\n  - id: T-1\n    category: THC\n    operation: IMPORT\n    rate: \"1\"\n",
			wantErr: "tariffs[0] T-1: effectiveDate",
		},
		{
			name:    "case without tenant",
			yaml:    "cases:\n  - caseId: CASE-9\n",
			wantErr: "cases[0] CASE-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2026-03-15T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC), d)

	_, err = parseDate("")
	assert.Error(t, err)
}
