package payment

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"repayment-engine/internal/domain/customer"
	"repayment-engine/internal/pkg/msisdn"

	"github.com/shopspring/decimal"
)

const (
	transactionCodePrefix = "TXN"
	receiptPrefix         = "MP"
	codeAlphabet          = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen         = 6
)

// Factory builds transaction identifiers and balance snapshots.
type Factory struct {
	countryCode string
	now         func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type FactoryOption func(*Factory)

func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

func WithRand(r *rand.Rand) FactoryOption {
	return func(f *Factory) { f.rnd = r }
}

func NewFactory(countryCode string, opts ...FactoryOption) *Factory {
	if countryCode == "" {
		countryCode = msisdn.DefaultCountryCode
	}
	f := &Factory{
		countryCode: countryCode,
		now:         time.Now,
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Now() time.Time {
	return f.now()
}

func (f *Factory) FormatPhoneNumber(raw string) string {
	return msisdn.Normalize(raw, f.countryCode)
}

// NewTransactionCode returns TXN + yyyyMMddHHmmss + six characters of
// [A-Z0-9]. Uniqueness is finally enforced by the store.
func (f *Factory) NewTransactionCode() string {
	var b strings.Builder
	b.WriteString(transactionCodePrefix)
	b.WriteString(f.now().Format("20060102150405"))

	f.mu.Lock()
	defer f.mu.Unlock()
	for range codeSuffixLen {
		b.WriteByte(codeAlphabet[f.rnd.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// NewReceiptNumber returns MP + yyMMdd + five random digits.
func (f *Factory) NewReceiptNumber() string {
	f.mu.Lock()
	n := f.rnd.IntN(100000)
	f.mu.Unlock()

	return fmt.Sprintf("%s%s%05d", receiptPrefix, f.now().Format("060102"), n)
}

// ComputePostPaymentBalances returns the loan balance and arrears that result
// from paying amount against cust. Arrears never go below zero.
func ComputePostPaymentBalances(cust *customer.Customer, amount decimal.Decimal) (newLoanBalance, newArrears decimal.Decimal) {
	newLoanBalance = cust.LoanBalance.Sub(amount)
	newArrears = decimal.Max(decimal.Zero, cust.Arrears.Sub(amount))
	return newLoanBalance, newArrears
}

// NewPendingTransaction snapshots cust for a payment of amount. The caller is
// responsible for having checked amount against the balance.
func (f *Factory) NewPendingTransaction(cust *customer.Customer, amount decimal.Decimal, description string) *Transaction {
	newLoan, newArrears := ComputePostPaymentBalances(cust, amount)
	if strings.TrimSpace(description) == "" {
		description = DefaultDescription
	}
	now := f.now()
	return &Transaction{
		TransactionCode:   f.NewTransactionCode(),
		CustomerID:        cust.ID,
		Description:       strings.TrimSpace(description),
		Amount:            amount,
		PhoneNumber:       cust.PhoneNumber,
		LoanBalanceBefore: cust.LoanBalance,
		LoanBalanceAfter:  newLoan,
		ArrearsBefore:     cust.Arrears,
		ArrearsAfter:      newArrears,
		Status:            StatusPending,
		PinAttempts:       0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
