package payment_test

import (
	"errors"
	"testing"
	"time"

	"repayment-engine/internal/domain/payment"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to payment.Status
		want     bool
	}{
		{payment.StatusPending, payment.StatusSuccess, true},
		{payment.StatusPending, payment.StatusFailed, true},
		{payment.StatusPending, payment.StatusCancelled, true},
		{payment.StatusPending, payment.StatusPending, true},
		{payment.StatusSuccess, payment.StatusFailed, false},
		{payment.StatusSuccess, payment.StatusPending, false},
		{payment.StatusFailed, payment.StatusSuccess, false},
		{payment.StatusCancelled, payment.StatusPending, false},
		{payment.Status("BOGUS"), payment.StatusSuccess, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, payment.CanTransition(tt.from, tt.to))
			err := payment.ValidateTransition(tt.from, tt.to)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
				assert.Contains(t, err.Error(), string(tt.from))
			}
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, payment.StatusPending.IsTerminal())
	assert.True(t, payment.StatusSuccess.IsTerminal())
	assert.True(t, payment.StatusFailed.IsTerminal())
	assert.True(t, payment.StatusCancelled.IsTerminal())
	assert.False(t, payment.Status("nope").Valid())
}

func TestTransaction_RecordFailedAttempt(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	txn := &payment.Transaction{TransactionCode: "TXN1", Status: payment.StatusPending}

	failed, err := txn.RecordFailedAttempt(now)
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Equal(t, 2, txn.AttemptsLeft())

	failed, err = txn.RecordFailedAttempt(now)
	require.NoError(t, err)
	assert.False(t, failed)

	failed, err = txn.RecordFailedAttempt(now)
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, payment.StatusFailed, txn.Status)
	assert.Equal(t, 3, txn.PinAttempts)
	assert.Equal(t, 0, txn.AttemptsLeft())
	require.NotNil(t, txn.ErrorMessage)
	assert.Equal(t, payment.MsgMaxAttemptsExceeded, *txn.ErrorMessage)
	require.NotNil(t, txn.ProcessedAt)

	_, err = txn.RecordFailedAttempt(now)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestTransaction_CheckConfirmable(t *testing.T) {
	pending := &payment.Transaction{TransactionCode: "TXN2", Status: payment.StatusPending}
	assert.NoError(t, pending.CheckConfirmable())

	spent := &payment.Transaction{TransactionCode: "TXN3", Status: payment.StatusPending, PinAttempts: 3}
	assert.True(t, errors.Is(spent.CheckConfirmable(), apperrors.ErrAttemptsExceeded))

	done := &payment.Transaction{TransactionCode: "TXN4", Status: payment.StatusSuccess}
	err := done.CheckConfirmable()
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Contains(t, err.Error(), "SUCCESS")
}

func TestTransaction_MarkSucceededOnlyOnce(t *testing.T) {
	now := time.Now()
	txn := &payment.Transaction{TransactionCode: "TXN5", Status: payment.StatusPending}

	require.NoError(t, txn.MarkSucceeded("MP25010112345", now))
	require.NotNil(t, txn.MpesaReceiptNumber)
	assert.Equal(t, "MP25010112345", *txn.MpesaReceiptNumber)
	assert.Nil(t, txn.ErrorMessage)

	err := txn.MarkSucceeded("MP25010199999", now)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.Equal(t, "MP25010112345", *txn.MpesaReceiptNumber)

	assert.True(t, errors.Is(txn.MarkCancelled(now), apperrors.ErrInvalidState))
}

func TestTransaction_Clone(t *testing.T) {
	msg := "x"
	txn := &payment.Transaction{TransactionCode: "TXN6", ErrorMessage: &msg}
	c := txn.Clone()
	*c.ErrorMessage = "y"
	assert.Equal(t, "x", *txn.ErrorMessage)
	assert.Nil(t, (*payment.Transaction)(nil).Clone())
}
