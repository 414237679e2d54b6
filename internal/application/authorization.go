package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/freight-platform/pricing-service/internal/domain"
	"github.com/freight-platform/pricing-service/pkg/tenant"
)

// CaseAuthorizer decides whether the caller in ctx may price a case
type CaseAuthorizer interface {
	AuthorizeCase(ctx context.Context, c *domain.Case) error
}

// TenantCaseAuthorizer allows callers whose tenant owns the case
type TenantCaseAuthorizer struct {
	helper *tenant.RepositoryHelper
}

// NewTenantCaseAuthorizer creates an authorizer. With enforce set, callers
// without a tenant are denied.
func NewTenantCaseAuthorizer(enforce bool) *TenantCaseAuthorizer {
	return &TenantCaseAuthorizer{helper: tenant.NewRepositoryHelper(enforce)}
}

// AuthorizeCase returns domain.ErrAccessDenied when the caller may not act on c
func (a *TenantCaseAuthorizer) AuthorizeCase(ctx context.Context, c *domain.Case) error {
	if err := a.helper.ValidateOwnership(ctx, c.TenantID); err != nil {
		if errors.Is(err, tenant.ErrMissingTenantContext) {
			return fmt.Errorf("%w: %v", domain.ErrAccessDenied, err)
		}
		return domain.ErrAccessDenied
	}
	return nil
}
