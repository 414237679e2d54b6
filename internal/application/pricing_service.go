package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/freight-platform/pricing-service/internal/domain"
	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/metrics"
	"github.com/freight-platform/pricing-service/pkg/resilience"
)

// Run outcomes reported in metrics
const (
	outcomePriced   = "priced"
	outcomePartial  = "partial"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// DecisionPublisher announces recorded pricing decisions
type DecisionPublisher interface {
	PublishDecisionsRecorded(ctx context.Context, event *domain.DecisionsRecordedEvent, correlationID string) error
}

// PricingConfig tunes a PricingService
type PricingConfig struct {
	Matcher  domain.MatcherConfig
	MaxLines int
	// PublishRetry bounds retries of the decision event
	PublishRetry *resilience.RetryConfig
}

// DefaultPricingConfig returns the default configuration
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Matcher:      domain.DefaultMatcherConfig(),
		MaxLines:     200,
		PublishRetry: resilience.DefaultRetryConfig(),
	}
}

// PricingService resolves rates for the service lines of a case
type PricingService struct {
	cases      domain.CaseRepository
	catalog    domain.RuleCatalog
	audit      domain.AuditRepository
	fallback   *domain.FallbackResolver
	matcher    *domain.Matcher
	authorizer CaseAuthorizer
	publisher  DecisionPublisher
	config     PricingConfig
	logger     *logging.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	clock    func() time.Time
	newRunID func() string
}

// NewPricingService creates a new PricingService. publisher and m may be nil.
func NewPricingService(
	cases domain.CaseRepository,
	catalog domain.RuleCatalog,
	tariffs domain.TariffRepository,
	audit domain.AuditRepository,
	authorizer CaseAuthorizer,
	publisher DecisionPublisher,
	config PricingConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *PricingService {
	if config.MaxLines <= 0 {
		config.MaxLines = DefaultPricingConfig().MaxLines
	}
	if config.PublishRetry == nil {
		config.PublishRetry = resilience.DefaultRetryConfig()
	}
	return &PricingService{
		cases:      cases,
		catalog:    catalog,
		audit:      audit,
		fallback:   domain.NewFallbackResolver(tariffs),
		matcher:    domain.NewMatcher(config.Matcher),
		authorizer: authorizer,
		publisher:  publisher,
		config:     config,
		logger:     logger.WithComponent("pricing"),
		metrics:    m,
		tracer:     otel.Tracer("pricing-service"),
		clock:      func() time.Time { return time.Now().UTC() },
		newRunID:   func() string { return uuid.New().String() },
	}
}

// PriceCase prices every requested line of a case. Batch-level problems
// abort the run with an AppError; line-level problems only mark the line.
func (s *PricingService) PriceCase(ctx context.Context, cmd PriceCaseCommand) (*PricingResultDTO, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, "pricing.price_case", trace.WithAttributes(
		attribute.String("pricing.case_id", cmd.CaseID),
		attribute.Int("pricing.lines", len(cmd.Lines)),
	))
	defer span.End()

	if appErr := s.validateBatch(cmd); appErr != nil {
		s.recordRun(outcomeRejected, started)
		span.SetStatus(codes.Error, appErr.Message)
		return nil, appErr
	}

	now := s.clock()
	pcase, snapshot, err := s.load(ctx, cmd.CaseID, now)
	if err != nil {
		appErr := mapLoadError(err)
		s.recordRun(outcomeFailed, started)
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Message)
		s.logger.WithContext(ctx).WithError(err).Error("Pricing load failed", "caseId", cmd.CaseID)
		return nil, appErr
	}

	if err := s.authorizer.AuthorizeCase(ctx, pcase); err != nil {
		s.recordRun(outcomeRejected, started)
		span.SetStatus(codes.Error, "forbidden")
		s.logger.WithContext(ctx).Warn("Pricing denied", "caseId", cmd.CaseID, "error", err.Error())
		return nil, apperrors.ErrForbidden("not allowed to price this case").Wrap(err)
	}

	pctx := domain.BuildPricingContext(pcase.Facts)
	run := &domain.PricingRun{
		RunID:    s.newRunID(),
		CaseID:   pcase.ID,
		TenantID: pcase.TenantID,
		PricedAt: now,
	}
	for _, req := range toLineRequests(cmd.Lines) {
		line := s.priceLine(ctx, req, snapshot, pctx)
		run.PricedLines = append(run.PricedLines, line)
		if !line.IsPriced() {
			run.Missing = append(run.Missing, missingKey(req))
		}
	}

	s.recordDecisions(ctx, run, cmd.CorrelationID)

	summary := run.Summary()
	outcome := outcomePriced
	if summary.Missing > 0 {
		outcome = outcomePartial
	}
	s.recordRun(outcome, started)
	s.logger.PricingRun(ctx, run.CaseID, summary.Total, summary.Priced, time.Since(started))
	span.SetAttributes(
		attribute.String("pricing.run_id", run.RunID),
		attribute.Int("pricing.priced", summary.Priced),
		attribute.Int("pricing.missing", summary.Missing),
	)

	return ToPricingResultDTO(run), nil
}

// GetDecisions returns the latest recorded decision of every line of a case
func (s *PricingService) GetDecisions(ctx context.Context, query GetDecisionsQuery) (*DecisionsDTO, error) {
	if strings.TrimSpace(query.CaseID) == "" {
		return nil, apperrors.ErrValidation("case id is required")
	}

	pcase, err := s.cases.FindByID(ctx, query.CaseID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if err := s.authorizer.AuthorizeCase(ctx, pcase); err != nil {
		return nil, apperrors.ErrForbidden("not allowed to read this case").Wrap(err)
	}

	decisions, err := s.audit.FindByCase(ctx, pcase.ID)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to read decisions", "caseId", pcase.ID)
		return nil, mapLoadError(err)
	}
	return ToDecisionsDTO(pcase.ID, decisions), nil
}

func (s *PricingService) validateBatch(cmd PriceCaseCommand) *apperrors.AppError {
	if strings.TrimSpace(cmd.CaseID) == "" {
		return apperrors.ErrValidation("case id is required")
	}
	if len(cmd.Lines) == 0 {
		return apperrors.ErrValidation("at least one service line is required")
	}
	if len(cmd.Lines) > s.config.MaxLines {
		return apperrors.ErrValidation(fmt.Sprintf("at most %d service lines per request", s.config.MaxLines))
	}

	seen := make(map[string]int, len(cmd.Lines))
	fields := make(map[string]string)
	for i, l := range cmd.Lines {
		path := fmt.Sprintf("lines[%d].id", i)
		if strings.TrimSpace(l.ID) == "" {
			fields[path] = "is required"
			continue
		}
		if first, dup := seen[l.ID]; dup {
			fields[path] = fmt.Sprintf("duplicates lines[%d].id", first)
			continue
		}
		seen[l.ID] = i
	}
	if len(fields) > 0 {
		return apperrors.ErrValidationWithFields("invalid service lines", fields)
	}
	return nil
}

// load reads the case and the three rule tables concurrently
func (s *PricingService) load(ctx context.Context, caseID string, now time.Time) (*domain.Case, *domain.RuleSnapshot, error) {
	var (
		pcase       *domain.Case
		rules       []domain.QuantityRule
		conversions []domain.UnitConversion
		cards       []domain.RateCard
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pcase, err = s.cases.FindByID(gctx, caseID)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = s.catalog.QuantityRules(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		conversions, err = s.catalog.UnitConversions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cards, err = s.catalog.RateCardsInForce(gctx, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return pcase, domain.NewRuleSnapshot(rules, conversions, cards, now), nil
}

// priceLine walks one line through validation, quantity, matching and fallback
func (s *PricingService) priceLine(ctx context.Context, req domain.ServiceLineRequest, snap *domain.RuleSnapshot, pctx domain.PricingContext) domain.PricedLine {
	line := s.resolveLine(ctx, req, snap, pctx)
	if s.metrics != nil {
		s.metrics.RecordPricedLine(metricServiceKey(line.ServiceKey), sourceLabel(line.Source))
	}
	s.logger.LineDecision(ctx, line.ID, line.ServiceKey, line.Source, line.MatchScore)
	return line
}

func (s *PricingService) resolveLine(ctx context.Context, req domain.ServiceLineRequest, snap *domain.RuleSnapshot, pctx domain.PricingContext) domain.PricedLine {
	key, ok := domain.ParseServiceKey(req.ServiceKey)
	if !ok {
		return domain.NewUnpricedLine(req, domain.SourceUnknownService,
			fmt.Sprintf("unknown service key %q", req.ServiceKey))
	}
	req.ServiceKey = string(key)

	currency, ok := domain.NormalizeCurrency(req.Currency)
	if !ok {
		return domain.NewUnpricedLine(req, domain.SourceInvalidCurrency,
			fmt.Sprintf("unsupported currency %q", req.Currency))
	}

	if math.IsNaN(req.Quantity) || req.Quantity < domain.MinRequestQuantity || req.Quantity > domain.MaxRequestQuantity {
		line := domain.NewUnpricedLine(req, domain.SourceInvalidQuantity,
			fmt.Sprintf("quantity %v outside [%d, %d]", req.Quantity, domain.MinRequestQuantity, domain.MaxRequestQuantity))
		line.Currency = string(currency)
		return line
	}

	airMode := pctx.IsAirMode()
	rule := snap.Rule(key)
	qty := domain.ComputeQuantity(key, rule, pctx, snap.Conversions, airMode)
	unit := qty.Unit
	if rule == nil && strings.TrimSpace(req.Unit) != "" {
		unit = domain.NormalizeUnit(req.Unit)
	}

	line := domain.PricedLine{
		ID:             req.ID,
		ServiceKey:     string(key),
		Currency:       string(currency),
		QuantityUsed:   qty.Quantity,
		UnitUsed:       string(unit),
		RuleID:         qty.RuleID,
		ConversionUsed: qty.Conversion,
	}

	if qty.Quantity == nil {
		line.Source = domain.SourceMissingQuantity
		line.Explanation = "quantity unresolved: " + qty.Trace
		return line
	}

	if match := s.matcher.FindBest(snap.RateCards, key, pctx, unit, currency, airMode); match != nil {
		rate := match.Card.Value
		amount := domain.LineAmount(rate, *qty.Quantity, match.Card.MinCharge)
		cardID := match.Card.ID

		line.Rate = &rate
		line.Amount = &amount
		line.Currency = match.Card.OutputCurrency()
		line.Source = match.Card.Provenance()
		line.Confidence = match.Card.LineConfidence()
		line.MatchScore = match.Score
		line.RateCardID = &cardID
		line.Explanation = qty.Trace + "; " + match.Explanation
		if s.metrics != nil {
			s.metrics.ObserveMatchScore(match.Score)
		}
		return line
	}

	if key.HasFallback() {
		fb, err := s.fallback.FindFallbackAt(ctx, key, pctx, snap.AsOf)
		switch {
		case err != nil:
			s.recordFallback("error")
			s.logger.WithContext(ctx).WithError(err).Warn("Tariff fallback failed", "lineId", req.ID, "serviceKey", key)
		case fb != nil:
			s.recordFallback("hit")
			amount := domain.LineAmount(fb.Rate, *qty.Quantity, nil)
			rate := fb.Rate

			line.Rate = &rate
			line.Amount = &amount
			line.Currency = fb.Currency
			line.Source = fb.Source
			line.Confidence = fb.Confidence
			line.Explanation = qty.Trace + "; " + fb.Explanation
			return line
		default:
			s.recordFallback("miss")
		}
	}

	line.Source = domain.SourceNoMatch
	line.Explanation = fmt.Sprintf("%s; no rate card for %s in %s", qty.Trace, unit, currency)
	return line
}

// recordDecisions writes the audit rows and announces them. Neither step
// can fail the run.
func (s *PricingService) recordDecisions(ctx context.Context, run *domain.PricingRun, correlationID string) {
	if err := s.audit.Record(ctx, run); err != nil {
		if s.metrics != nil {
			s.metrics.RecordAuditWriteFailure()
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to record pricing decisions",
			"caseId", run.CaseID,
			"runId", run.RunID,
			"lines", len(run.PricedLines),
		)
		return
	}

	if s.publisher == nil {
		return
	}
	event := domain.NewDecisionsRecordedEvent(run)
	err := resilience.Retry(ctx, s.config.PublishRetry, func() error {
		return s.publisher.PublishDecisionsRecorded(ctx, event, correlationID)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish pricing decisions",
			"caseId", run.CaseID,
			"runId", run.RunID,
		)
	}
}

func (s *PricingService) recordRun(outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.RecordPricingRun(outcome, time.Since(started))
	}
}

func (s *PricingService) recordFallback(result string) {
	if s.metrics != nil {
		s.metrics.RecordFallbackLookup(result)
	}
}

func mapLoadError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrCaseNotFound):
		return apperrors.ErrNotFound("case").Wrap(err)
	case errors.Is(err, apperrors.ErrKindUnavailable):
		return apperrors.ErrServiceUnavailable("pricing store").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("pricing load").Wrap(err)
	}
	return apperrors.ErrInternal("pricing load failed").Wrap(err)
}

// missingKey is the canonical key of a failed line, or the raw key when unknown
func missingKey(req domain.ServiceLineRequest) string {
	if key, ok := domain.ParseServiceKey(req.ServiceKey); ok {
		return string(key)
	}
	return req.ServiceKey
}

func metricServiceKey(key string) string {
	if domain.ServiceKey(key).IsValid() {
		return key
	}
	return "unknown"
}

// sourceLabel keeps provenance strings out of metric labels
func sourceLabel(source string) string {
	switch source {
	case domain.SourceUnknownService, domain.SourceInvalidCurrency, domain.SourceInvalidQuantity,
		domain.SourceMissingQuantity, domain.SourceNoMatch:
		return source
	}
	if strings.HasPrefix(source, domain.FallbackSourcePrefix) {
		return "tariff_fallback"
	}
	return "rate_card"
}
