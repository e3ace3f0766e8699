package payment

import (
	"fmt"
	"slices"
	"time"

	"repayment-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

const (
	MaxPinAttempts     = 3
	DefaultDescription = "Loan repayment"

	MsgMaxAttemptsExceeded   = "Maximum PIN attempts exceeded"
	MsgCancelledByAdmin      = "Cancelled by administrator"
	MsgExpired               = "Transaction expired before confirmation"
	MsgInsufficientAtConfirm = "Insufficient loan balance at confirmation"
)

type Transaction struct {
	ID              int64  `json:"id"`
	TransactionCode string `json:"transactionCode"`
	CustomerID      int64  `json:"customerId"`
	Description     string `json:"description"`

	// Captured at initiation and never rewritten.
	Amount            decimal.Decimal `json:"amount"`
	PhoneNumber       string          `json:"phoneNumber"`
	LoanBalanceBefore decimal.Decimal `json:"loanBalanceBefore"`
	LoanBalanceAfter  decimal.Decimal `json:"loanBalanceAfter"`
	ArrearsBefore     decimal.Decimal `json:"arrearsBefore"`
	ArrearsAfter      decimal.Decimal `json:"arrearsAfter"`

	Status             Status     `json:"status"`
	PinAttempts        int        `json:"pinAttempts"`
	MpesaReceiptNumber *string    `json:"mpesaReceiptNumber,omitempty"`
	ErrorMessage       *string    `json:"errorMessage,omitempty"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusPending, StatusSuccess, StatusFailed, StatusCancelled},
	StatusSuccess:   {},
	StatusFailed:    {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	allowed, ok := allowedTransitions[s]
	return ok && len(allowed) == 0
}

// CanTransition reports whether a transaction in from may move to to.
// PENDING -> PENDING is the failed-attempt self loop.
func CanTransition(from, to Status) bool {
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: transaction is %s, cannot move to %s", apperrors.ErrInvalidState, from, to)
	}
	return nil
}

func (t *Transaction) AttemptsLeft() int {
	return max(0, MaxPinAttempts-t.PinAttempts)
}

// CheckConfirmable returns ErrInvalidState when the transaction is no longer
// pending and ErrAttemptsExceeded when the PIN budget is already spent.
func (t *Transaction) CheckConfirmable() error {
	if t.Status != StatusPending {
		return fmt.Errorf("%w: transaction %s is %s", apperrors.ErrInvalidState, t.TransactionCode, t.Status)
	}
	if t.PinAttempts >= MaxPinAttempts {
		return fmt.Errorf("%w: transaction %s has used %d of %d attempts",
			apperrors.ErrAttemptsExceeded, t.TransactionCode, t.PinAttempts, MaxPinAttempts)
	}
	return nil
}

func (t *Transaction) finish(to Status, message string, at time.Time) error {
	if err := ValidateTransition(t.Status, to); err != nil {
		return fmt.Errorf("transaction %s: %w", t.TransactionCode, err)
	}
	t.Status = to
	if message != "" {
		msg := message
		t.ErrorMessage = &msg
	}
	processed := at
	t.ProcessedAt = &processed
	t.UpdatedAt = at
	return nil
}

// MarkSucceeded finalises a confirmed payment with its receipt number.
func (t *Transaction) MarkSucceeded(receipt string, at time.Time) error {
	if err := t.finish(StatusSuccess, "", at); err != nil {
		return err
	}
	r := receipt
	t.MpesaReceiptNumber = &r
	return nil
}

func (t *Transaction) MarkFailed(reason string, at time.Time) error {
	return t.finish(StatusFailed, reason, at)
}

func (t *Transaction) MarkCancelled(at time.Time) error {
	return t.finish(StatusCancelled, MsgCancelledByAdmin, at)
}

// RecordFailedAttempt consumes one PIN attempt and fails the transaction once
// the budget is exhausted. It reports whether the transaction became FAILED.
func (t *Transaction) RecordFailedAttempt(at time.Time) (bool, error) {
	if err := t.CheckConfirmable(); err != nil {
		return false, err
	}
	t.PinAttempts++
	t.UpdatedAt = at
	if t.PinAttempts >= MaxPinAttempts {
		return true, t.MarkFailed(MsgMaxAttemptsExceeded, at)
	}
	return false, nil
}

func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	if t.MpesaReceiptNumber != nil {
		v := *t.MpesaReceiptNumber
		c.MpesaReceiptNumber = &v
	}
	if t.ErrorMessage != nil {
		v := *t.ErrorMessage
		c.ErrorMessage = &v
	}
	if t.ProcessedAt != nil {
		v := *t.ProcessedAt
		c.ProcessedAt = &v
	}
	return &c
}
