package payment_test

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/domain/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestFactory() *payment.Factory {
	return payment.NewFactory("254",
		payment.WithClock(func() time.Time { return fixedNow }),
		payment.WithRand(rand.New(rand.NewPCG(7, 11))),
	)
}

func TestFactory_FormatPhoneNumber(t *testing.T) {
	f := newTestFactory()
	tests := map[string]string{
		"0712345678":    "254712345678",
		"+254712345678": "254712345678",
		"254712345678":  "254712345678",
		"712345678":     "254712345678",
		" 0712-345-678": "254712345678",
	}
	for raw, want := range tests {
		assert.Equal(t, want, f.FormatPhoneNumber(raw), raw)
	}
}

func TestFactory_NewTransactionCode(t *testing.T) {
	f := newTestFactory()
	pattern := regexp.MustCompile(`^TXN20250314150926[A-Z0-9]{6}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		code := f.NewTransactionCode()
		assert.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 490, "codes within the same second should rarely collide")
}

func TestFactory_NewReceiptNumber(t *testing.T) {
	f := newTestFactory()
	for i := 0; i < 100; i++ {
		assert.Regexp(t, `^MP250314\d{5}$`, f.NewReceiptNumber())
	}
}

func TestComputePostPaymentBalances(t *testing.T) {
	tests := []struct {
		name                 string
		balance, arrears     string
		amount               string
		wantLoan, wantArrear string
	}{
		{"clears arrears", "50000", "5000", "20000", "30000", "0"},
		{"partial arrears", "50000", "5000", "2000", "48000", "3000"},
		{"full balance", "1200.50", "100", "1200.50", "0", "0"},
		{"no arrears", "100", "0", "0.01", "99.99", "0"},
		{"amount equals arrears", "500", "200", "200", "300", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cust := &customer.Customer{
				LoanBalance: decimal.RequireFromString(tt.balance),
				Arrears:     decimal.RequireFromString(tt.arrears),
			}
			loan, arrears := payment.ComputePostPaymentBalances(cust, decimal.RequireFromString(tt.amount))
			assert.True(t, loan.Equal(decimal.RequireFromString(tt.wantLoan)), "loan %s", loan)
			assert.True(t, arrears.Equal(decimal.RequireFromString(tt.wantArrear)), "arrears %s", arrears)
			assert.False(t, arrears.IsNegative())
		})
	}
}

func TestFactory_NewPendingTransaction(t *testing.T) {
	f := newTestFactory()
	cust := &customer.Customer{
		ID:          4,
		PhoneNumber: "254712345678",
		LoanBalance: decimal.NewFromInt(50000),
		Arrears:     decimal.NewFromInt(5000),
	}

	txn := f.NewPendingTransaction(cust, decimal.NewFromInt(20000), "  ")

	assert.Equal(t, payment.StatusPending, txn.Status)
	assert.Equal(t, 0, txn.PinAttempts)
	assert.Equal(t, int64(4), txn.CustomerID)
	assert.Equal(t, "254712345678", txn.PhoneNumber)
	assert.Equal(t, payment.DefaultDescription, txn.Description)
	assert.True(t, txn.LoanBalanceBefore.Equal(decimal.NewFromInt(50000)))
	assert.True(t, txn.LoanBalanceAfter.Equal(decimal.NewFromInt(30000)))
	assert.True(t, txn.ArrearsBefore.Equal(decimal.NewFromInt(5000)))
	assert.True(t, txn.ArrearsAfter.IsZero())
	assert.Equal(t, fixedNow, txn.CreatedAt)
	assert.Nil(t, txn.MpesaReceiptNumber)
	assert.Nil(t, txn.ProcessedAt)
}
