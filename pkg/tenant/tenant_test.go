package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	apperrors "github.com/freight-platform/pricing-service/pkg/errors"
)

func agencyCtx() context.Context {
	return ToContext(context.Background(), &Context{TenantID: "agency-1", UserID: "user-7"})
}

func TestContextRoundTrip(t *testing.T) {
	tc, err := FromContext(agencyCtx())
	require.NoError(t, err)
	assert.Equal(t, &Context{TenantID: "agency-1", UserID: "user-7"}, tc)

	_, err = FromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenantContext)

	userOnly := ToContext(context.Background(), &Context{UserID: "user-7"})
	opt := FromContextOptional(userOnly)
	assert.True(t, opt.IsEmpty())
	assert.Equal(t, "user-7", opt.UserID)

	assert.Equal(t, "agency-2", GetTenantID(WithTenantID(context.Background(), "agency-2")))
	assert.Same(t, context.Background(), ToContext(context.Background(), nil))
}

func TestValidateOwnership(t *testing.T) {
	tc := &Context{TenantID: "agency-1"}
	assert.NoError(t, tc.ValidateOwnership("agency-1"))
	assert.NoError(t, tc.ValidateOwnership(""), "unowned resources are shared")

	err := tc.ValidateOwnership("agency-2")
	assert.ErrorIs(t, err, ErrUnauthorizedAccess)
	assert.ErrorIs(t, err, apperrors.ErrKindForbidden)
}

func TestRepositoryHelper(t *testing.T) {
	tests := []struct {
		name    string
		enforce bool
		ctx     context.Context
		want    bson.M
		wantErr error
	}{
		{"scoped to tenant", true, agencyCtx(), bson.M{"caseId": "CASE-1", "tenantId": "agency-1"}, nil},
		{"no tenant, lenient", false, context.Background(), bson.M{"caseId": "CASE-1"}, nil},
		{"no tenant, enforced", true, context.Background(), nil, ErrMissingTenantContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := bson.M{"caseId": "CASE-1"}
			got, err := NewRepositoryHelper(tt.enforce).WithTenantFilter(tt.ctx, filter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, bson.M{"caseId": "CASE-1"}, filter, "input filter is not modified")
		})
	}
}

func TestRepositoryHelper_ValidateOwnership(t *testing.T) {
	assert.NoError(t, NewRepositoryHelper(false).ValidateOwnership(context.Background(), "agency-2"))
	assert.ErrorIs(t, NewRepositoryHelper(true).ValidateOwnership(context.Background(), "agency-2"), ErrMissingTenantContext)
	assert.ErrorIs(t, NewRepositoryHelper(true).ValidateOwnership(agencyCtx(), "agency-2"), ErrUnauthorizedAccess)
}
