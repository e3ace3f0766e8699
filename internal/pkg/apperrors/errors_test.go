package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "With Code",
			appError: &AppError{
				Code:    "TEST_CODE",
				Message: "This is a test error",
			},
			expected: "[TEST_CODE] This is a test error",
		},
		{
			name: "Without Code",
			appError: &AppError{
				Message: "This is a test error without code",
			},
			expected: "This is a test error without code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appError.Error())
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("amount", "must be greater than zero")

	assert.True(t, errors.Is(err, ErrValidation))

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Equal(t, "amount", vErr.Field)
	assert.Equal(t, "must be greater than zero", vErr.Message)
	assert.Contains(t, err.Error(), "validation failed for field 'amount'")
}

func TestValidationErrorWithoutField(t *testing.T) {
	err := &ValidationError{Message: "bad input"}
	assert.Equal(t, "validation failed: bad input", err.Error())
}

func TestWrapDatabaseError(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapDatabaseError(cause, "failed to load transaction")

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, ErrDatabase))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[DB_ERROR] failed to load transaction", err.Error())
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{nil, ""},
		{NewValidationError("phone", "empty"), "VALIDATION_ERROR"},
		{fmt.Errorf("%w: customer 1", ErrNotFound), "NOT_FOUND"},
		{fmt.Errorf("%w: 10 > 5", ErrBalance), "BALANCE_ERROR"},
		{fmt.Errorf("%w: status SUCCESS", ErrInvalidState), "INVALID_STATE"},
		{ErrAttemptsExceeded, "ATTEMPTS_EXCEEDED"},
		{ErrVerificationUnavailable, "VERIFICATION_UNAVAILABLE"},
		{WrapDatabaseError(errors.New("x"), "y"), "STORAGE_ERROR"},
		{errors.New("boom"), "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, Code(tt.err))
	}
}
