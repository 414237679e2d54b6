package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freight-platform/pricing-service/internal/application"
	"github.com/freight-platform/pricing-service/internal/domain"
	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
	"github.com/freight-platform/pricing-service/pkg/logging"
)

type memoryBackend struct {
	cases       map[string]domain.Case
	rules       []domain.QuantityRule
	conversions []domain.UnitConversion
	cards       []domain.RateCard
	tariffs     []domain.Tariff
	decisions   map[string]domain.PricingDecision

	rateCardErr error
	indexCalls  int
	closed      bool
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{cases: map[string]domain.Case{}, decisions: map[string]domain.PricingDecision{}}
}

func (m *memoryBackend) FindByID(_ context.Context, id string) (*domain.Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, domain.ErrCaseNotFound
	}
	return &c, nil
}

func (m *memoryBackend) UpsertAll(_ context.Context, cases []domain.Case) error {
	for _, c := range cases {
		m.cases[c.ID] = c
	}
	return nil
}

func (m *memoryBackend) QuantityRules(context.Context) ([]domain.QuantityRule, error) {
	return m.rules, nil
}

func (m *memoryBackend) UnitConversions(context.Context) ([]domain.UnitConversion, error) {
	return m.conversions, nil
}

func (m *memoryBackend) RateCardsInForce(_ context.Context, asOf time.Time) ([]domain.RateCard, error) {
	var out []domain.RateCard
	for _, c := range m.cards {
		if c.InForce(asOf) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryBackend) UpsertQuantityRules(_ context.Context, rules []domain.QuantityRule) error {
	m.rules = append(m.rules, rules...)
	return nil
}

func (m *memoryBackend) UpsertUnitConversions(_ context.Context, conversions []domain.UnitConversion) error {
	m.conversions = append(m.conversions, conversions...)
	return nil
}

func (m *memoryBackend) UpsertRateCards(_ context.Context, cards []domain.RateCard) error {
	if m.rateCardErr != nil {
		return m.rateCardErr
	}
	m.cards = append(m.cards, cards...)
	return nil
}

type memoryTariffs struct{ b *memoryBackend }

func (t memoryTariffs) FindActive(_ context.Context, q domain.TariffQuery) ([]domain.Tariff, error) {
	var out []domain.Tariff
	for _, row := range t.b.tariffs {
		if row.Active && row.Category == q.Category && row.Operation == q.Operation && !row.EffectiveDate.After(q.AsOf) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t memoryTariffs) UpsertAll(_ context.Context, rows []domain.Tariff) error {
	t.b.tariffs = append(t.b.tariffs, rows...)
	return nil
}

type memoryAudit struct{ b *memoryBackend }

func (a memoryAudit) Record(_ context.Context, run *domain.PricingRun) error {
	for _, l := range run.PricedLines {
		a.b.decisions[run.CaseID+"/"+l.ID] = domain.PricingDecision{
			CaseID: run.CaseID, TenantID: run.TenantID, RunID: run.RunID, PricedAt: run.PricedAt, Line: l,
		}
	}
	return nil
}

func (a memoryAudit) FindByCase(_ context.Context, caseID string) ([]domain.PricingDecision, error) {
	var out []domain.PricingDecision
	for _, d := range a.b.decisions {
		if d.CaseID == caseID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line.ID < out[j].Line.ID })
	return out, nil
}

// stubBackend points every command at mem and restores the real backend on cleanup
func stubBackend(t *testing.T, mem *memoryBackend) {
	t.Helper()
	old := openBackend
	t.Cleanup(func() { openBackend = old })

	openBackend = func(context.Context, *rootOptions, *logging.Logger) (*backend, error) {
		return &backend{
			cases:   mem,
			catalog: mem,
			tariffs: memoryTariffs{mem},
			audit:   memoryAudit{mem},
			ensureIndexes: func(context.Context) error {
				mem.indexCalls++
				return nil
			},
			close: func(context.Context) error {
				mem.closed = true
				return nil
			},
		}, nil
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const sampleLines = `
caseId: CASE-1
lines:
  - id: l-thc
    serviceKey: terminal_handling
    unit: TEU
    quantity: 1
    currency: FCFA
  - id: l-doc
    serviceKey: documentation
    unit: flat
    quantity: 1
    currency: XOF
`

func TestSeedCommand(t *testing.T) {
	mem := newMemoryBackend()
	stubBackend(t, mem)

	out, err := execute("seed", "--file", writeFile(t, "catalog.yaml", sampleCatalog))
	require.NoError(t, err)

	assert.Contains(t, out, "Seeded 1 quantity rules, 2 unit conversions, 2 rate cards, 2 tariffs, 1 cases")
	assert.Equal(t, 1, mem.indexCalls)
	assert.True(t, mem.closed)
	assert.Len(t, mem.cards, 2)
	assert.Contains(t, mem.cases, "CASE-1")
}

func TestSeedCommand_NoIndexes(t *testing.T) {
	mem := newMemoryBackend()
	stubBackend(t, mem)

	_, err := execute("seed", "--no-indexes", "-f", writeFile(t, "catalog.yaml", sampleCatalog))
	require.NoError(t, err)
	assert.Zero(t, mem.indexCalls)
}

func TestSeedCommand_Errors(t *testing.T) {
	t.Run("missing file flag", func(t *testing.T) {
		stubBackend(t, newMemoryBackend())
		_, err := execute("seed")
		assert.Error(t, err)
	})

	t.Run("unreadable file", func(t *testing.T) {
		stubBackend(t, newMemoryBackend())
		_, err := execute("seed", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read catalog file")
	})

	t.Run("store failure", func(t *testing.T) {
		mem := newMemoryBackend()
		mem.rateCardErr = errors.New("bulk write failed")
		stubBackend(t, mem)

		_, err := execute("seed", "--file", writeFile(t, "catalog.yaml", sampleCatalog))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "seed rate cards")
		assert.True(t, mem.closed)
	})

	t.Run("connection failure", func(t *testing.T) {
		old := openBackend
		t.Cleanup(func() { openBackend = old })
		openBackend = func(context.Context, *rootOptions, *logging.Logger) (*backend, error) {
			return nil, errors.New("server selection timeout")
		}

		_, err := execute("seed", "--file", writeFile(t, "catalog.yaml", sampleCatalog))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connect to MongoDB")
	})
}

func TestPriceCommand(t *testing.T) {
	mem := newMemoryBackend()
	stubBackend(t, mem)

	_, err := execute("seed", "--file", writeFile(t, "catalog.yaml", sampleCatalog))
	require.NoError(t, err)

	out, err := execute("price", "--file", writeFile(t, "lines.yaml", sampleLines), "--tenant", "agency-1")
	require.NoError(t, err)

	var result application.PricingResultDTO
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "CASE-1", result.CaseID)
	assert.Equal(t, application.SummaryDTO{Priced: 1, Missing: 1, Total: 2}, result.Summary)
	assert.Equal(t, []string{"documentation"}, result.Missing)

	require.Len(t, result.PricedLines, 2)
	thc := result.PricedLines[0]
	assert.Equal(t, "l-thc", thc.ID)
	require.NotNil(t, thc.Rate)
	assert.Equal(t, 95000.0, *thc.Rate)
	require.NotNil(t, thc.QuantityUsed)
	assert.Equal(t, 4.0, *thc.QuantityUsed)

	assert.Len(t, mem.decisions, 2, "decisions are recorded")
}

func TestPriceCommand_CaseFlagOverridesFile(t *testing.T) {
	mem := newMemoryBackend()
	stubBackend(t, mem)

	_, err := execute("price", "--case", "CASE-404", "--file", writeFile(t, "lines.yaml", sampleLines))
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestPriceCommand_OtherTenantIsDenied(t *testing.T) {
	mem := newMemoryBackend()
	stubBackend(t, mem)

	_, err := execute("seed", "--file", writeFile(t, "catalog.yaml", sampleCatalog))
	require.NoError(t, err)

	_, err = execute("price", "--file", writeFile(t, "lines.yaml", sampleLines), "--tenant", "agency-2")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
	assert.Empty(t, mem.decisions)
}

func TestPriceCommand_InvalidLinesFile(t *testing.T) {
	stubBackend(t, newMemoryBackend())

	_, err := execute("price", "--file", writeFile(t, "lines.yaml", "caseId: CASE-1\nlines:\n  - serviceKey: documentation\n"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Equal(t, "is required", appErr.Details["lines[0].id"])
}

func TestDecisionsCommand(t *testing.T) {
	mem := newMemoryBackend()
	stubBackend(t, mem)

	_, err := execute("seed", "--file", writeFile(t, "catalog.yaml", sampleCatalog))
	require.NoError(t, err)
	_, err = execute("price", "--file", writeFile(t, "lines.yaml", sampleLines))
	require.NoError(t, err)

	out, err := execute("decisions", "--case", "CASE-1")
	require.NoError(t, err)

	var decisions application.DecisionsDTO
	require.NoError(t, json.Unmarshal([]byte(out), &decisions))
	assert.Equal(t, "CASE-1", decisions.CaseID)
	require.Len(t, decisions.Decisions, 2)
	assert.Equal(t, "l-doc", decisions.Decisions[0].ServiceLineID)
	assert.Equal(t, "l-thc", decisions.Decisions[1].ServiceLineID)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("PRICECTL_TEST", "set")
	assert.Equal(t, "set", envOr("PRICECTL_TEST", "fallback"))
	assert.Equal(t, "fallback", envOr("PRICECTL_MISSING", "fallback"))
}
