package customer_test

import (
	"strings"
	"testing"
	"time"

	"repayment-engine/internal/domain/customer"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewCustomer(t *testing.T) {
	timeBefore := time.Now()
	cust := customer.NewCustomer("Alice Wanjiru", "254712345678", decimal.NewFromInt(50000), decimal.NewFromInt(5000))
	timeAfter := time.Now()

	assert.NotNil(t, cust)
	assert.Equal(t, "Alice Wanjiru", cust.FullName)
	assert.Equal(t, "254712345678", cust.PhoneNumber)
	assert.True(t, cust.LoanBalance.Equal(decimal.NewFromInt(50000)))
	assert.True(t, cust.Arrears.Equal(decimal.NewFromInt(5000)))
	assert.True(t, cust.TotalRepayments.IsZero())
	assert.Nil(t, cust.LastPaymentDate)
	assert.True(t, cust.IsActive)
	assert.Equal(t, int64(0), cust.ID)

	assert.True(t, strings.HasPrefix(cust.CustomerCode, "CUS"))
	assert.Len(t, cust.CustomerCode, 3+26)

	assert.Equal(t, cust.CreatedAt, cust.UpdatedAt)
	assert.True(t, !cust.CreatedAt.Before(timeBefore) && !cust.CreatedAt.After(timeAfter))
}

func TestNewCustomerCodeIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		code := customer.NewCustomerCode()
		_, dup := seen[code]
		assert.False(t, dup, "duplicate customer code %s", code)
		seen[code] = struct{}{}
	}
}

func TestCustomer_ApplyPayment(t *testing.T) {
	cust := customer.NewCustomer("Bob Otieno", "254700000001", decimal.NewFromInt(50000), decimal.NewFromInt(5000))
	cust.TotalRepayments = decimal.NewFromInt(1000)
	paidAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	cust.ApplyPayment(decimal.NewFromInt(20000), decimal.NewFromInt(30000), decimal.Zero, paidAt)

	assert.True(t, cust.LoanBalance.Equal(decimal.NewFromInt(30000)))
	assert.True(t, cust.Arrears.IsZero())
	assert.True(t, cust.TotalRepayments.Equal(decimal.NewFromInt(21000)))
	if assert.NotNil(t, cust.LastPaymentDate) {
		assert.True(t, cust.LastPaymentDate.Equal(paidAt))
	}
	assert.Equal(t, paidAt, cust.UpdatedAt)
}

func TestCustomer_SameFinancials(t *testing.T) {
	base := customer.NewCustomer("Carol", "254700000002", decimal.RequireFromString("100.00"), decimal.Zero)

	same := *base
	same.LoanBalance = decimal.RequireFromString("100")
	assert.True(t, base.SameFinancials(&same), "numerically equal balances compare equal")

	changed := *base
	changed.ApplyPayment(decimal.NewFromInt(10), decimal.NewFromInt(90), decimal.Zero, time.Now())
	assert.False(t, base.SameFinancials(&changed))

	assert.False(t, base.SameFinancials(nil))
}

func TestCustomer_DeactivateReactivate(t *testing.T) {
	cust := customer.NewCustomer("Dan", "254700000003", decimal.Zero, decimal.Zero)
	initialUpdate := cust.UpdatedAt

	time.Sleep(time.Millisecond)
	cust.Deactivate()
	assert.False(t, cust.IsActive)
	assert.True(t, cust.UpdatedAt.After(initialUpdate))

	deactivatedAt := cust.UpdatedAt
	cust.Deactivate()
	assert.Equal(t, deactivatedAt, cust.UpdatedAt, "deactivating twice does not touch UpdatedAt")

	cust.Reactivate()
	assert.True(t, cust.IsActive)
}
