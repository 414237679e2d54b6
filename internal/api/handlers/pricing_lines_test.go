package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freight-platform/pricing-service/internal/application"
	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/pkg/logging"
)

type stubCases struct{}

func (stubCases) FindByID(_ context.Context, caseID string) (*domain.Case, error) {
	return &domain.Case{ID: caseID, TenantID: "agency-1", Facts: []domain.Fact{
		{Key: domain.FactScope, Value: "import", IsCurrent: true},
	}}, nil
}

type stubCatalog struct{}

func (stubCatalog) QuantityRules(context.Context) ([]domain.QuantityRule, error)     { return nil, nil }
func (stubCatalog) UnitConversions(context.Context) ([]domain.UnitConversion, error) { return nil, nil }
func (stubCatalog) RateCardsInForce(context.Context, time.Time) ([]domain.RateCard, error) {
	return nil, nil
}

type stubTariffs struct{}

func (stubTariffs) FindActive(context.Context, domain.TariffQuery) ([]domain.Tariff, error) {
	return nil, nil
}

type stubAudit struct{ recorded int }

func (s *stubAudit) Record(_ context.Context, run *domain.PricingRun) error {
	s.recorded = len(run.PricedLines)
	return nil
}
func (s *stubAudit) FindByCase(context.Context, string) ([]domain.PricingDecision, error) {
	return nil, nil
}

func TestPricingHandlerPriceCase_LineLevelFailures(t *testing.T) {
	audit := &stubAudit{}
	logger := logging.New(&logging.Config{ServiceName: "pricing-test", Output: io.Discard})
	service := application.NewPricingService(stubCases{}, stubCatalog{}, stubTariffs{}, audit,
		application.NewTenantCaseAuthorizer(false), nil, application.DefaultPricingConfig(), logger, nil)
	router := newRouter(service)

	rec := makeRequest(router, http.MethodPost, "/api/v1/cases/CASE-1/pricing", map[string]interface{}{
		"lines": []map[string]interface{}{
			{"id": "l-1", "serviceKey": "terminal_handling", "currency": "XOF"},
			{"id": "l-2", "serviceKey": ""},
			{"id": "l-3", "serviceKey": "documentation", "currency": "doubloons"},
		},
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data application.PricingResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data.PricedLines, 3)

	sources := map[string]string{}
	for _, l := range body.Data.PricedLines {
		sources[l.ID] = l.Source
		assert.Nil(t, l.Rate)
	}
	assert.Equal(t, domain.SourceUnknownService, sources["l-2"])
	assert.Equal(t, domain.SourceInvalidCurrency, sources["l-3"])
	assert.Equal(t, 3, body.Data.Summary.Total)
	assert.Equal(t, 3, audit.recorded)
}
