package payment

import (
	"context"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/event"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (_m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	ret := _m.Called(ctx)

	var r0 pgx.Tx
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(pgx.Tx)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return _m.Called(ctx, tx).Error(0)
}

func (_m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return _m.Called(ctx, tx).Error(0)
}

func (_m *MockRepository) GetActiveCustomerByPhoneInTx(ctx context.Context, tx pgx.Tx, phoneNumber string) (*customer.Customer, error) {
	ret := _m.Called(ctx, tx, phoneNumber)

	var r0 *customer.Customer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*customer.Customer)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) CreateTransactionInTx(ctx context.Context, tx pgx.Tx, txn *Transaction) error {
	ret := _m.Called(ctx, tx, txn)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, pgx.Tx, *Transaction) error); ok {
		r0 = rf(ctx, tx, txn)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

func (_m *MockRepository) GetTransactionByCode(ctx context.Context, transactionCode string) (*Transaction, error) {
	ret := _m.Called(ctx, transactionCode)

	var r0 *Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Transaction)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	ret := _m.Called(ctx, filter)

	var r0 []*Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*Transaction)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) ListStalePendingCodes(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	ret := _m.Called(ctx, olderThan, limit)

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}

	return r0, ret.Error(1)
}

func (_m *MockRepository) AtomicUpdate(ctx context.Context, transactionCode string, fn MutateFunc) (*Transaction, *customer.Customer, error) {
	ret := _m.Called(ctx, transactionCode, fn)

	if rf, ok := ret.Get(0).(func(context.Context, string, MutateFunc) (*Transaction, *customer.Customer, error)); ok {
		return rf(ctx, transactionCode, fn)
	}

	var r0 *Transaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*Transaction)
	}
	var r1 *customer.Customer
	if ret.Get(1) != nil {
		r1 = ret.Get(1).(*customer.Customer)
	}

	return r0, r1, ret.Error(2)
}

type MockVerifier struct {
	mock.Mock
}

var _ Verifier = (*MockVerifier)(nil)

func (_m *MockVerifier) Verify(ctx context.Context, txn *Transaction, code string) (bool, error) {
	ret := _m.Called(ctx, txn, code)
	return ret.Bool(0), ret.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

var _ event.EventPublisher = (*MockEventPublisher)(nil)

func (_m *MockEventPublisher) PublishPaymentEvent(ctx context.Context, evt event.PaymentEvent) error {
	return _m.Called(ctx, evt).Error(0)
}

func (_m *MockEventPublisher) PublishCustomerEvent(ctx context.Context, evt event.CustomerEvent) error {
	return _m.Called(ctx, evt).Error(0)
}
