package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"wrapped not found kind", fmt.Errorf("case not found: %w", ErrKindNotFound), CodeNotFound, http.StatusNotFound},
		{"wrapped forbidden kind", fmt.Errorf("access to case denied: %w", ErrKindForbidden), CodeForbidden, http.StatusForbidden},
		{"wrapped validation kind", fmt.Errorf("bad line: %w", ErrKindValidation), CodeValidationError, http.StatusBadRequest},
		{"wrapped unavailable kind", fmt.Errorf("cases: %w", ErrKindUnavailable), CodeServiceUnavailable, http.StatusServiceUnavailable},
		{"deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), CodeTimeout, http.StatusGatewayTimeout},
		{"message not found", errors.New("tariff table not found"), CodeNotFound, http.StatusNotFound},
		{"message required", errors.New("case id is required"), CodeValidationError, http.StatusBadRequest},
		{"message permission", errors.New("permission denied"), CodeForbidden, http.StatusForbidden},
		{"unclassified", errors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDomainError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestMapDomainError_KeepsAppError(t *testing.T) {
	appErr := ErrForbidden("nope")
	assert.Same(t, appErr, MapDomainError(fmt.Errorf("wrapped: %w", appErr)))
	assert.Nil(t, MapDomainError(nil))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := errors.New("disk full")
	got := FromError(plain)
	assert.Equal(t, CodeInternalError, got.Code)
	assert.ErrorIs(t, got, plain)

	notFound := ErrNotFound("case")
	assert.Same(t, notFound, FromError(notFound))
}

func TestAppErrorDetails(t *testing.T) {
	err := ErrValidation("validation failed").WithDetail("lines[0].id", "is required")
	assert.Equal(t, map[string]string{"lines[0].id": "is required"}, err.Details)
	assert.Equal(t, "VALIDATION_ERROR: validation failed", err.Error())

	wrapped := ErrInternal("pricing load failed").Wrap(errors.New("socket closed"))
	assert.Contains(t, wrapped.Error(), "socket closed")
}
