package tenant

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenantId"
	userIDKey   contextKey = "userId"
)

var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = fmt.Errorf("unauthorized access to tenant resource: %w", apperrors.ErrKindForbidden)
)

// Context identifies the forwarding agency (tenant) and the user acting for it.
// Both are established by an upstream identity provider.
type Context struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
}

// FromContext extracts the tenant context. A tenant id is required.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{
		TenantID: stringValue(ctx, tenantIDKey),
		UserID:   stringValue(ctx, userIDKey),
	}
	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// FromContextOptional returns an empty Context when none is set
func FromContextOptional(ctx context.Context) *Context {
	tc, err := FromContext(ctx)
	if err != nil {
		return &Context{UserID: stringValue(ctx, userIDKey)}
	}
	return tc
}

// ToContext stores the non-empty identifiers of tc in ctx
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.UserID != "" {
		ctx = context.WithValue(ctx, userIDKey, tc.UserID)
	}
	return ctx
}

// WithTenantID returns a new context with the tenant ID set
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// IsEmpty returns true if no tenant is set
func (tc *Context) IsEmpty() bool {
	return tc.TenantID == ""
}

// ValidateOwnership verifies that a resource owned by resourceTenantID may be
// accessed from this context. Resources without an owner are shared.
func (tc *Context) ValidateOwnership(resourceTenantID string) error {
	if resourceTenantID != "" && tc.TenantID != resourceTenantID {
		return ErrUnauthorizedAccess
	}
	return nil
}
