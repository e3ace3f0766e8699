package dto

import (
	"encoding/json"
	"strings"
	"time"

	"repayment-engine/internal/domain/payment"
	"repayment-engine/internal/pkg/apperrors"
)

type InitiatePaymentRequest struct {
	PhoneNumber string      `json:"phoneNumber"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description,omitempty"`
}

// Validate only checks presence; amount rules live in the payment service so
// every caller gets the same errors.
func (r *InitiatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return apperrors.NewValidationError("phoneNumber", "phone number is required")
	}
	if strings.TrimSpace(r.Amount.String()) == "" {
		return apperrors.NewValidationError("amount", "amount is required")
	}
	return nil
}

func (r *InitiatePaymentRequest) ToServiceRequest() payment.InitiateRequest {
	return payment.InitiateRequest{
		PhoneNumber: r.PhoneNumber,
		Amount:      r.Amount.String(),
		Description: r.Description,
	}
}

type ConfirmPaymentRequest struct {
	Code string `json:"code"`
}

type TransactionResponse struct {
	TransactionCode    string     `json:"transactionCode"`
	CustomerID         int64      `json:"customerId"`
	Description        string     `json:"description"`
	Amount             string     `json:"amount"`
	PhoneNumber        string     `json:"phoneNumber"`
	LoanBalanceBefore  string     `json:"loanBalanceBefore"`
	LoanBalanceAfter   string     `json:"loanBalanceAfter"`
	ArrearsBefore      string     `json:"arrearsBefore"`
	ArrearsAfter       string     `json:"arrearsAfter"`
	Status             string     `json:"status"`
	PinAttempts        int        `json:"pinAttempts"`
	AttemptsLeft       int        `json:"attemptsLeft"`
	MpesaReceiptNumber *string    `json:"mpesaReceiptNumber,omitempty"`
	ErrorMessage       *string    `json:"errorMessage,omitempty"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func NewTransactionResponse(txn *payment.Transaction) TransactionResponse {
	if txn == nil {
		return TransactionResponse{}
	}
	return TransactionResponse{
		TransactionCode:    txn.TransactionCode,
		CustomerID:         txn.CustomerID,
		Description:        txn.Description,
		Amount:             formatMoney(txn.Amount),
		PhoneNumber:        txn.PhoneNumber,
		LoanBalanceBefore:  formatMoney(txn.LoanBalanceBefore),
		LoanBalanceAfter:   formatMoney(txn.LoanBalanceAfter),
		ArrearsBefore:      formatMoney(txn.ArrearsBefore),
		ArrearsAfter:       formatMoney(txn.ArrearsAfter),
		Status:             string(txn.Status),
		PinAttempts:        txn.PinAttempts,
		AttemptsLeft:       txn.AttemptsLeft(),
		MpesaReceiptNumber: txn.MpesaReceiptNumber,
		ErrorMessage:       txn.ErrorMessage,
		ProcessedAt:        txn.ProcessedAt,
		CreatedAt:          txn.CreatedAt,
		UpdatedAt:          txn.UpdatedAt,
	}
}

func NewTransactionListResponse(txns []*payment.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		resp[i] = NewTransactionResponse(txn)
	}
	return resp
}

// ConfirmationResponse mirrors payment.ConfirmationResult. Balances are only
// present on SUCCESS.
type ConfirmationResponse struct {
	TransactionCode string  `json:"transactionCode"`
	Status          string  `json:"status"`
	ReceiptNumber   string  `json:"receiptNumber,omitempty"`
	NewLoanBalance  *string `json:"newLoanBalance,omitempty"`
	NewArrears      *string `json:"newArrears,omitempty"`
	AttemptsLeft    int     `json:"attemptsLeft"`
	Message         string  `json:"message"`
}

func NewConfirmationResponse(res *payment.ConfirmationResult) ConfirmationResponse {
	if res == nil {
		return ConfirmationResponse{}
	}
	resp := ConfirmationResponse{
		Status:        string(res.Status),
		ReceiptNumber: res.ReceiptNumber,
		AttemptsLeft:  res.AttemptsLeft,
		Message:       res.Message,
	}
	if res.Transaction != nil {
		resp.TransactionCode = res.Transaction.TransactionCode
	}
	if res.Status == payment.StatusSuccess {
		loan := formatMoney(res.NewLoanBalance)
		arrears := formatMoney(res.NewArrears)
		resp.NewLoanBalance = &loan
		resp.NewArrears = &arrears
	}
	return resp
}
