package tenant

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// RepositoryHelper scopes MongoDB filters to the tenant in context.
type RepositoryHelper struct {
	// EnforceTenant when true, returns an error if tenant context is missing
	EnforceTenant bool
}

// NewRepositoryHelper creates a new RepositoryHelper
func NewRepositoryHelper(enforceTenant bool) *RepositoryHelper {
	return &RepositoryHelper{EnforceTenant: enforceTenant}
}

// WithTenantFilter returns a copy of filter restricted to the caller's tenant
func (h *RepositoryHelper) WithTenantFilter(ctx context.Context, filter bson.M) (bson.M, error) {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return nil, err
		}
		return filter, nil
	}

	scoped := make(bson.M, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}
	scoped["tenantId"] = tc.TenantID
	return scoped, nil
}

// ValidateOwnership verifies that a resource belongs to the tenant in context
func (h *RepositoryHelper) ValidateOwnership(ctx context.Context, resourceTenantID string) error {
	tc, err := FromContext(ctx)
	if err != nil {
		if h.EnforceTenant {
			return err
		}
		return nil
	}
	return tc.ValidateOwnership(resourceTenantID)
}
