package customer

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const customerCodePrefix = "CUS"

type Customer struct {
	ID              int64           `json:"id"`
	CustomerCode    string          `json:"customerCode"`
	FullName        string          `json:"fullName"`
	Email           string          `json:"email,omitempty"`
	NationalID      string          `json:"nationalId,omitempty"`
	PhoneNumber     string          `json:"phoneNumber"`
	LoanBalance     decimal.Decimal `json:"loanBalance"`
	Arrears         decimal.Decimal `json:"arrears"`
	TotalRepayments decimal.Decimal `json:"totalRepayments"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate,omitempty"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func NewCustomer(fullName, phoneNumber string, loanBalance, arrears decimal.Decimal) *Customer {
	now := time.Now()
	return &Customer{
		CustomerCode:    NewCustomerCode(),
		FullName:        fullName,
		PhoneNumber:     phoneNumber,
		LoanBalance:     loanBalance,
		Arrears:         arrears,
		TotalRepayments: decimal.Zero,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NewCustomerCode returns an externally visible, time-sortable customer code.
func NewCustomerCode() string {
	return customerCodePrefix + ulid.Make().String()
}

// ApplyPayment records a confirmed repayment. newLoanBalance and newArrears
// are the post-payment balances computed for amount.
func (c *Customer) ApplyPayment(amount, newLoanBalance, newArrears decimal.Decimal, at time.Time) {
	c.LoanBalance = newLoanBalance
	c.Arrears = newArrears
	c.TotalRepayments = c.TotalRepayments.Add(amount)
	paidAt := at
	c.LastPaymentDate = &paidAt
	c.UpdatedAt = at
}

// SameFinancials reports whether c and other carry identical balance fields.
func (c *Customer) SameFinancials(other *Customer) bool {
	if other == nil {
		return false
	}
	if !c.LoanBalance.Equal(other.LoanBalance) ||
		!c.Arrears.Equal(other.Arrears) ||
		!c.TotalRepayments.Equal(other.TotalRepayments) {
		return false
	}
	switch {
	case c.LastPaymentDate == nil && other.LastPaymentDate == nil:
		return true
	case c.LastPaymentDate == nil || other.LastPaymentDate == nil:
		return false
	default:
		return c.LastPaymentDate.Equal(*other.LastPaymentDate)
	}
}

func (c *Customer) Deactivate() {
	if c.IsActive {
		c.IsActive = false
		c.UpdatedAt = time.Now()
	}
}

func (c *Customer) Reactivate() {
	if !c.IsActive {
		c.IsActive = true
		c.UpdatedAt = time.Now()
	}
}
