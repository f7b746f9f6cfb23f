package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeCustomerInUse, http.StatusUnprocessableEntity},
		{ErrCodeStorage, http.StatusInternalServerError},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("maps domain codes to API codes", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
		assert.Equal(t, ErrCodeForbidden, NormalizeErrorCode("FORBIDDEN"))
		assert.Equal(t, ErrCodeBusinessRule, NormalizeErrorCode("INVALID_ITEMS"))
		assert.Equal(t, ErrCodeConcurrencyConflict, NormalizeErrorCode("CONCURRENT_MODIFICATION"))
	})

	t.Run("passes through unknown and already normalized codes", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, "SOME_CUSTOM_CODE", NormalizeErrorCode("SOME_CUSTOM_CODE"))
	})
}

func TestForbiddenDistinctFromNotFound(t *testing.T) {
	// An owner mismatch and a missing record must stay observable as
	// different API outcomes.
	assert.NotEqual(t,
		GetHTTPStatus(NormalizeErrorCode("FORBIDDEN")),
		GetHTTPStatus(NormalizeErrorCode("NOT_FOUND")),
	)
}
