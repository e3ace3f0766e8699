package customer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/event"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTest() (*customer.MockCustomerRepository, *customer.MockEventPublisher, customer.CustomerService) {
	mockRepo := new(customer.MockCustomerRepository)
	mockPub := new(customer.MockEventPublisher)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := customer.NewCustomerService(mockRepo, mockPub, "254", logger)
	return mockRepo, mockPub, service
}

func validInput() customer.CreateCustomerInput {
	return customer.CreateCustomerInput{
		FullName:    "  Jane Akinyi ",
		PhoneNumber: "0712 345 678",
		Email:       "jane@example.com",
		LoanBalance: decimal.NewFromInt(50000),
		Arrears:     decimal.NewFromInt(5000),
	}
}

func TestCustomerService_CreateCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()

		mockRepo.On("Save", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.FullName == "Jane Akinyi" && c.PhoneNumber == "254712345678" && c.IsActive && c.ID == 0
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*customer.Customer).ID = 11
		}).Return(nil).Once()
		mockPub.On("PublishCustomerEvent", ctx, mock.MatchedBy(func(e event.CustomerEvent) bool {
			return e.Type == event.RoutingKeyCustomerCreated && e.Payload.CustomerID == 11
		})).Return(nil).Once()

		created, err := service.CreateCustomer(ctx, validInput())

		require.NoError(t, err)
		assert.Equal(t, int64(11), created.ID)
		assert.Equal(t, "jane@example.com", created.Email)
		assert.True(t, created.TotalRepayments.IsZero())
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Publish failure does not fail creation", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()

		mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		mockPub.On("PublishCustomerEvent", ctx, mock.Anything).Return(errors.New("broker down")).Once()

		created, err := service.CreateCustomer(ctx, validInput())

		require.NoError(t, err)
		assert.NotNil(t, created)
	})

	validationCases := []struct {
		name   string
		mutate func(*customer.CreateCustomerInput)
		field  string
	}{
		{"empty name", func(in *customer.CreateCustomerInput) { in.FullName = "  " }, "fullName"},
		{"empty phone", func(in *customer.CreateCustomerInput) { in.PhoneNumber = "" }, "phoneNumber"},
		{"malformed phone", func(in *customer.CreateCustomerInput) { in.PhoneNumber = "07abc" }, "phoneNumber"},
		{"negative balance", func(in *customer.CreateCustomerInput) { in.LoanBalance = decimal.NewFromInt(-1) }, "loanBalance"},
		{"negative arrears", func(in *customer.CreateCustomerInput) { in.Arrears = decimal.NewFromInt(-1) }, "arrears"},
		{"arrears above balance", func(in *customer.CreateCustomerInput) { in.Arrears = decimal.NewFromInt(60000) }, "arrears"},
	}
	for _, tc := range validationCases {
		t.Run("Validation - "+tc.name, func(t *testing.T) {
			mockRepo, _, service := setupTest()
			in := validInput()
			tc.mutate(&in)

			_, err := service.CreateCustomer(ctx, in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
			var vErr *apperrors.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
			mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}

	t.Run("Duplicate phone", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("Save", ctx, mock.Anything).Return(fmt.Errorf("%w: customers_active_phone_idx", apperrors.ErrAlreadyExists)).Once()

		_, err := service.CreateCustomer(ctx, validInput())

		assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	})
}

func TestCustomerService_GetCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		expected := &customer.Customer{ID: 3, FullName: "Kim"}
		mockRepo.On("FindByID", ctx, int64(3)).Return(expected, nil).Once()

		got, err := service.GetCustomer(ctx, 3)

		require.NoError(t, err)
		assert.Same(t, expected, got)
	})

	t.Run("Not found", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(4)).Return(nil, apperrors.ErrNotFound).Once()

		_, err := service.GetCustomer(ctx, 4)

		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("Storage error", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(5)).Return(nil, fmt.Errorf("%w: timeout", apperrors.ErrStorage)).Once()

		_, err := service.GetCustomer(ctx, 5)

		assert.True(t, errors.Is(err, apperrors.ErrStorage))
		assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	})
}

func TestCustomerService_GetCustomerByPhone(t *testing.T) {
	ctx := context.Background()
	mockRepo, _, service := setupTest()
	expected := &customer.Customer{ID: 8, PhoneNumber: "254712345678", IsActive: true}
	mockRepo.On("FindByPhone", ctx, "254712345678", true).Return(expected, nil).Once()

	got, err := service.GetCustomerByPhone(ctx, "+254712345678")

	require.NoError(t, err)
	assert.Equal(t, int64(8), got.ID)
	mockRepo.AssertExpectations(t)
}

func TestCustomerService_GetCustomerByCode(t *testing.T) {
	ctx := context.Background()
	mockRepo, _, service := setupTest()
	mockRepo.On("FindByCode", ctx, "CUS01HXYZ").Return(nil, apperrors.ErrNotFound).Once()

	_, err := service.GetCustomerByCode(ctx, " cus01hxyz ")

	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	mockRepo.AssertExpectations(t)
}

func TestCustomerService_ListCustomers(t *testing.T) {
	ctx := context.Background()
	mockRepo, _, service := setupTest()
	mockRepo.On("FindAll", ctx, true).Return([]*customer.Customer{{ID: 1}, {ID: 2}}, nil).Once()

	got, err := service.ListCustomers(ctx, true)

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCustomerService_UpdateContactDetails(t *testing.T) {
	ctx := context.Background()

	t.Run("Updates only supplied fields and never balances", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		existing := &customer.Customer{
			ID: 9, FullName: "Old Name", PhoneNumber: "254700000009",
			LoanBalance: decimal.NewFromInt(1000), IsActive: true,
		}
		mockRepo.On("FindByID", ctx, int64(9)).Return(existing, nil).Once()
		mockRepo.On("Save", ctx, existing).Return(nil).Once()

		phone := "0711111111"
		updated, err := service.UpdateContactDetails(ctx, 9, customer.UpdateContactInput{PhoneNumber: &phone})

		require.NoError(t, err)
		assert.Equal(t, "Old Name", updated.FullName)
		assert.Equal(t, "254711111111", updated.PhoneNumber)
		assert.True(t, updated.LoanBalance.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("Rejects blank name", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("FindByID", ctx, int64(9)).Return(&customer.Customer{ID: 9}, nil).Once()

		blank := " "
		_, err := service.UpdateContactDetails(ctx, 9, customer.UpdateContactInput{FullName: &blank})

		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		mockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCustomerService_DeactivateCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("Soft deletes and publishes", func(t *testing.T) {
		mockRepo, mockPub, service := setupTest()
		mockRepo.On("SetActiveStatus", ctx, int64(2), false).Return(nil).Once()
		mockRepo.On("FindByID", ctx, int64(2)).Return(&customer.Customer{ID: 2, IsActive: false}, nil).Once()
		mockPub.On("PublishCustomerEvent", ctx, mock.MatchedBy(func(e event.CustomerEvent) bool {
			return e.Type == event.RoutingKeyCustomerDeactivated && !e.Payload.IsActive
		})).Return(nil).Once()

		require.NoError(t, service.DeactivateCustomer(ctx, 2))
		mockRepo.AssertExpectations(t)
		mockPub.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		mockRepo, _, service := setupTest()
		mockRepo.On("SetActiveStatus", ctx, int64(2), false).Return(apperrors.ErrNotFound).Once()

		err := service.DeactivateCustomer(ctx, 2)

		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})
}

func TestCustomerService_ReactivateCustomer(t *testing.T) {
	ctx := context.Background()
	mockRepo, _, service := setupTest()
	mockRepo.On("SetActiveStatus", ctx, int64(2), true).Return(fmt.Errorf("%w: customers_active_phone_idx", apperrors.ErrAlreadyExists)).Once()

	err := service.ReactivateCustomer(ctx, 2)

	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
}
