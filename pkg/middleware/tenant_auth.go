package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/freight-platform/pricing-service/pkg/errors"
	"github.com/freight-platform/pricing-service/pkg/logging"
	"github.com/freight-platform/pricing-service/pkg/tenant"
)

// Identity headers set by the upstream gateway after authentication
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

const contextKeyTenant = "tenantContext"

// TenantAuthConfig holds configuration for tenant authorization middleware
type TenantAuthConfig struct {
	// Required rejects requests without a tenant header
	Required bool

	// Validator optionally confirms the user may act for the tenant
	Validator TenantValidator

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string
}

// TenantValidator validates tenant access for an authenticated user
type TenantValidator interface {
	ValidateTenantAccess(userID, tenantID string) error
}

// DefaultTenantAuthConfig requires a tenant header
func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{Required: true}
}

// TenantAuth reads the caller identity from headers and stores a
// tenant.Context on the request context.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}

	return func(c *gin.Context) {
		tenantID := c.GetHeader(HeaderTenantID)
		userID := c.GetHeader(HeaderUserID)

		if tenantID == "" {
			if config.Required {
				AbortWithAppError(c, errors.ErrUnauthorized("tenant context is required").
					WithDetail("header", HeaderTenantID))
				return
			}
			tenantID = config.DefaultTenantID
		}

		if config.Validator != nil && userID != "" {
			if err := config.Validator.ValidateTenantAccess(userID, tenantID); err != nil {
				AbortWithAppError(c, errors.ErrForbidden("access to this tenant is not authorized"))
				return
			}
		}

		tc := &tenant.Context{TenantID: tenantID, UserID: userID}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		ctx = logging.ContextWithTenantID(ctx, tenantID)
		if userID != "" {
			ctx = logging.ContextWithUserID(ctx, userID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextKeyTenant, tc)

		c.Next()
	}
}
