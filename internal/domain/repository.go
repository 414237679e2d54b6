package domain

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
)

var (
	ErrCaseNotFound = fmt.Errorf("case not found: %w", apperrors.ErrKindNotFound)
	ErrAccessDenied = fmt.Errorf("access to case denied: %w", apperrors.ErrKindForbidden)
)

// CaseRepository reads shipment cases and their facts
type CaseRepository interface {
	// FindByID returns the case or ErrCaseNotFound
	FindByID(ctx context.Context, caseID string) (*Case, error)
}

// RuleCatalog reads the pricing rule tables
type RuleCatalog interface {
	QuantityRules(ctx context.Context) ([]QuantityRule, error)
	UnitConversions(ctx context.Context) ([]UnitConversion, error)
	// RateCardsInForce returns cards whose validity window contains asOf
	RateCardsInForce(ctx context.Context, asOf time.Time) ([]RateCard, error)
}

// AuditRepository stores the latest pricing decision per case line
type AuditRepository interface {
	// Record upserts one decision per line keyed by case and line id
	Record(ctx context.Context, run *PricingRun) error

	// FindByCase returns the decisions of a case ordered by line id
	FindByCase(ctx context.Context, caseID string) ([]PricingDecision, error)
}
