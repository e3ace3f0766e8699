package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/domain/payment"
)

type PaymentHandler struct {
	service payment.PaymentService
	logger  *slog.Logger
}

func NewPaymentHandler(s payment.PaymentService, l *slog.Logger) *PaymentHandler {
	if s == nil {
		panic("payment service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &PaymentHandler{
		service: s,
		logger:  l.With("component", "PaymentHandler"),
	}
}

// InitiatePayment handles POST /payments/stk-push
// @Summary Initiate an STK push repayment
// @Description Creates a PENDING transaction for the active customer owning the phone number. Balances are snapshotted but not changed until confirmation.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body dto.InitiatePaymentRequest true "Phone number and amount"
// @Success 201 {object} dto.TransactionResponse "Transaction created"
// @Failure 400 {object} dto.ErrorResponse "Invalid phone number or amount"
// @Failure 404 {object} dto.ErrorResponse "No active customer for the phone number"
// @Failure 422 {object} dto.ErrorResponse "Amount exceeds the loan balance"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/stk-push [post]
// @Security BearerAuth
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req dto.InitiatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	txn, err := h.service.Initiate(r.Context(), req.ToServiceRequest())
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to initiate payment", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewTransactionResponse(txn))
}

// ConfirmPayment handles POST /payments/{code}/confirm
// @Summary Confirm a pending payment with the customer's PIN
// @Description A rejected PIN returns 200 with the remaining attempts. The third rejection fails the transaction.
// @Tags Payments
// @Accept json
// @Produce json
// @Param code path string true "Transaction code"
// @Param request body dto.ConfirmPaymentRequest true "PIN entered by the customer"
// @Success 200 {object} dto.ConfirmationResponse "Confirmation outcome"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 409 {object} dto.ErrorResponse "Transaction is not pending or has no attempts left"
// @Failure 422 {object} dto.ErrorResponse "Loan balance dropped below the amount; transaction failed"
// @Failure 503 {object} dto.ErrorResponse "PIN verification unavailable; attempt not consumed"
// @Router /payments/{code}/confirm [post]
// @Security BearerAuth
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	code, err := getTransactionCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.service.Confirm(r.Context(), code, req.Code)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to confirm payment", slog.String("transactionCode", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewConfirmationResponse(result))
}

// CancelPayment handles POST /payments/{code}/cancel
// @Summary Cancel a pending payment
// @Tags Payments
// @Produce json
// @Param code path string true "Transaction code"
// @Success 200 {object} dto.TransactionResponse "Transaction cancelled"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Failure 409 {object} dto.ErrorResponse "Transaction is not pending"
// @Router /payments/{code}/cancel [post]
// @Security BearerAuth
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	code, err := getTransactionCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	txn, err := h.service.Cancel(r.Context(), code)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to cancel payment", slog.String("transactionCode", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionResponse(txn))
}

// GetPayment handles GET /payments/{code}
// @Summary Retrieve a transaction
// @Tags Payments
// @Produce json
// @Param code path string true "Transaction code"
// @Success 200 {object} dto.TransactionResponse "Transaction details"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Router /payments/{code} [get]
// @Security BearerAuth
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	code, err := getTransactionCodeFromURL(r)
	if err != nil {
		respondError(w, err)
		return
	}

	txn, err := h.service.GetTransaction(r.Context(), code)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to get payment", slog.String("transactionCode", code), slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionResponse(txn))
}

// ListPayments handles GET /payments
// @Summary List transactions
// @Description Newest first. Limit defaults to 50 and is capped at 200.
// @Tags Payments
// @Produce json
// @Param customerId query int false "Filter by customer ID"
// @Param status query string false "Filter by status" Enums(PENDING, SUCCESS, FAILED, CANCELLED)
// @Param limit query int false "Page size"
// @Param offset query int false "Rows to skip"
// @Success 200 {array} dto.TransactionResponse "Transactions"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /payments [get]
// @Security BearerAuth
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryInt(r, "customerId", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, err)
		return
	}

	filter := payment.ListFilter{
		CustomerID: int64(customerID),
		Status:     payment.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
		Limit:      limit,
		Offset:     offset,
	}

	txns, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to list payments", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTransactionListResponse(txns))
}
